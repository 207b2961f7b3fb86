package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

// FormatReport renders a processing report as a boxed summary.
func FormatReport(report *service.ProcessReport) string {
	if report == nil || report.OwnerID == "" {
		return FormatWarning("No owner configured; nothing was processed. Set owner.id or RECUR_OWNER_ID.")
	}
	if report.Due == 0 {
		return FormatSuccess(fmt.Sprintf("Nothing due for %s as of %s", report.OwnerID, schedule.FormatDate(report.Today)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Run for %s as of %s\n\n", CalendarIcon, report.OwnerID, schedule.FormatDate(report.Today))
	b.WriteString(ChartIcon + " Statistics:\n")
	fmt.Fprintf(&b, "  • Rules due: %d\n", report.Due)
	fmt.Fprintf(&b, "  • Transactions recorded: %d\n", len(report.Materialized))
	fmt.Fprintf(&b, "  • Rules advanced: %d\n", report.Advanced)
	if report.Skipped > 0 {
		fmt.Fprintf(&b, "  • Already recorded (advanced only): %d\n", report.Skipped)
	}
	fmt.Fprintf(&b, "  • Failures: %d\n", len(report.Failures))
	fmt.Fprintf(&b, "  • Time taken: %s\n", report.Duration.Round(time.Millisecond))

	if len(report.Materialized) > 0 {
		b.WriteString("\nRecorded:\n")
		for _, txn := range report.Materialized {
			fmt.Fprintf(&b, "  %s  %s  %s\n", schedule.FormatDate(txn.Date), FormatAmount(txn.Amount), txn.Description)
		}
	}

	if report.HasFailures() {
		b.WriteString("\nFailures:\n")
		for _, f := range report.Failures {
			line := fmt.Sprintf("  %s %s (%s, %s stage): %v", ErrorIcon, f.RuleID, schedule.FormatDate(f.Date), f.Stage, f.Err)
			b.WriteString(ErrorStyle.Render(line) + "\n")
			if f.Duplicated() {
				b.WriteString(WarningStyle.Render("    transaction recorded but rule not advanced; the next run may record it again") + "\n")
			}
		}
	}

	title := "Recurrences Processed"
	if report.HasFailures() {
		title = "Recurrences Processed With Failures"
	}
	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}
