// Package engine implements the recurring transaction engine: it finds due
// recurrence rules, materializes their transactions, and advances their schedules.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

// ErrDueQueryFailed wraps failures of the initial due-rule query. Nothing has
// been written when it is returned, so the whole run can be retried.
var ErrDueQueryFailed = errors.New("failed to list due recurrences")

// CatchUpPolicy decides how many missed occurrences a rule produces per run.
type CatchUpPolicy string

const (
	// CatchUpSingle materializes at most one occurrence per rule per run.
	// A rule that is several periods behind catches up over several runs.
	CatchUpSingle CatchUpPolicy = "single"
	// CatchUpAll materializes every missed occurrence in one run, bounded by MaxCatchUp.
	CatchUpAll CatchUpPolicy = "all"
)

// ParseCatchUpPolicy validates a configured policy name.
func ParseCatchUpPolicy(s string) (CatchUpPolicy, error) {
	switch CatchUpPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case CatchUpSingle, "":
		return CatchUpSingle, nil
	case CatchUpAll:
		return CatchUpAll, nil
	default:
		return "", fmt.Errorf("%w: catch-up policy %q (expected single or all)", common.ErrInvalidConfig, s)
	}
}

// Config holds configuration options for the recurrence engine.
type Config struct {
	CatchUp           CatchUpPolicy
	DescriptionSuffix string
	QueryRetry        service.RetryOptions
	StoreTimeout      time.Duration // per store call; zero disables
	MaxCatchUp        int
	Workers           int
	// Atomic uses the TransactionStore's OccurrenceMaterializer, when it has
	// one, to insert and advance in a single store transaction.
	Atomic bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CatchUp:           CatchUpSingle,
		DescriptionSuffix: " (recurring)",
		QueryRetry:        common.DefaultRetryOptions(),
		StoreTimeout:      10 * time.Second,
		MaxCatchUp:        366,
		Workers:           1,
		Atomic:            true,
	}
}

// RecurrenceEngine materializes due recurrence rules into ledger transactions.
type RecurrenceEngine struct {
	rules    service.RecurrenceStore
	ledger   service.TransactionStore
	clock    service.Clock
	observer service.ProgressObserver
	config   Config
}

// New creates a new recurrence engine with the given dependencies.
func New(rules service.RecurrenceStore, ledger service.TransactionStore, clock service.Clock) *RecurrenceEngine {
	return NewWithConfig(rules, ledger, clock, DefaultConfig())
}

// NewWithConfig creates a new recurrence engine with custom configuration.
func NewWithConfig(rules service.RecurrenceStore, ledger service.TransactionStore, clock service.Clock, config Config) *RecurrenceEngine {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxCatchUp < 1 {
		config.MaxCatchUp = 1
	}
	if config.CatchUp == "" {
		config.CatchUp = CatchUpSingle
	}
	return &RecurrenceEngine{
		rules:  rules,
		ledger: ledger,
		clock:  clock,
		config: config,
	}
}

// SetObserver registers an observer notified as each rule is processed.
func (e *RecurrenceEngine) SetObserver(observer service.ProgressObserver) {
	e.observer = observer
}

// ProcessForSession runs ProcessDue for the session's current owner.
// Without a signed-in owner it does nothing and returns an empty report.
func (e *RecurrenceEngine) ProcessForSession(ctx context.Context, sessions service.SessionProvider) (*service.ProcessReport, error) {
	ownerID, ok := sessions.CurrentOwnerID(ctx)
	if !ok {
		slog.Debug("No owner signed in, skipping recurrence processing")
		return &service.ProcessReport{}, nil
	}
	return e.ProcessDue(ctx, ownerID)
}

// ProcessDue materializes every rule of ownerID that is due today.
//
// Per-rule failures are recorded in the report and never returned. A
// materialization failure leaves the rule untouched so the next run retries
// it. An advancement failure after a successful materialization is reported
// as a duplicate risk: the next run records the same occurrence again unless
// the store rejects it as a duplicate. The returned error is non-nil only
// when the due-rule query fails or ctx is canceled.
func (e *RecurrenceEngine) ProcessDue(ctx context.Context, ownerID string) (*service.ProcessReport, error) {
	start := time.Now()
	report := &service.ProcessReport{OwnerID: ownerID}
	if strings.TrimSpace(ownerID) == "" {
		return report, nil
	}

	today := schedule.DateOf(e.clock.Today())
	report.Today = today

	var due []model.RecurrenceRule
	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := e.callContext(ctx)
		defer cancel()
		var listErr error
		due, listErr = e.rules.ListDue(callCtx, ownerID, today)
		return listErr
	}, e.config.QueryRetry)
	if err != nil {
		return report, fmt.Errorf("%w for owner %s: %w", ErrDueQueryFailed, ownerID, err)
	}

	due = dueOnly(due, today)
	report.Due = len(due)
	if len(due) == 0 {
		slog.Debug("No recurrences due", "owner_id", ownerID, "today", schedule.FormatDate(today))
		report.Duration = time.Since(start)
		return report, nil
	}

	slog.Info("Processing due recurrences",
		"owner_id", ownerID,
		"today", schedule.FormatDate(today),
		"due", len(due),
		"catch_up", e.config.CatchUp)

	if e.observer != nil {
		e.observer.Start(len(due))
		defer e.observer.Finish()
	}

	var mu sync.Mutex
	record := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		o.apply(report)
	}

	if e.config.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(e.config.Workers)
		for _, rule := range due {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				record(e.processRule(ctx, rule, today))
				return nil
			})
		}
		_ = g.Wait()
		sortMaterialized(report.Materialized)
	} else {
		for _, rule := range due {
			if ctx.Err() != nil {
				break
			}
			record(e.processRule(ctx, rule, today))
		}
	}

	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("recurrence processing interrupted: %w", err)
	}

	logAttrs := []any{
		"owner_id", ownerID,
		"materialized", len(report.Materialized),
		"advanced", report.Advanced,
		"skipped", report.Skipped,
		"failures", len(report.Failures),
		"duration", report.Duration,
	}
	if report.HasFailures() {
		slog.Warn("Recurrence processing finished with failures", logAttrs...)
	} else {
		slog.Info("Recurrence processing complete", logAttrs...)
	}

	return report, nil
}

// CreateRecurring validates and stores a new rule. An empty Kind is derived
// from the sign of the amount.
func (e *RecurrenceEngine) CreateRecurring(ctx context.Context, rule *model.RecurrenceRule) (*model.RecurrenceRule, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule is required")
	}

	candidate := *rule
	candidate.NextOccurrence = schedule.DateOf(candidate.NextOccurrence)
	if candidate.Kind == "" {
		candidate.Kind = model.KindForAmount(candidate.Amount)
	}
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	created, err := e.rules.InsertRule(callCtx, &candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to create recurrence rule: %w", err)
	}

	slog.Info("Created recurrence rule",
		"rule_id", created.ID,
		"owner_id", created.OwnerID,
		"schedule", created.Schedule(),
		"next", schedule.FormatDate(created.NextOccurrence))
	return created, nil
}

// ToggleActive pauses or resumes a rule.
func (e *RecurrenceEngine) ToggleActive(ctx context.Context, id string, active bool) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("rule ID is required")
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	if err := e.rules.SetActive(callCtx, id, active); err != nil {
		return fmt.Errorf("failed to set rule %s active=%t: %w", id, active, err)
	}

	slog.Info("Updated recurrence rule", "rule_id", id, "active", active)
	return nil
}

// callContext bounds a single store call by the configured timeout.
func (e *RecurrenceEngine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.StoreTimeout)
}

// dueOnly drops rules a store returned that are inactive or not yet due.
func dueOnly(rules []model.RecurrenceRule, today time.Time) []model.RecurrenceRule {
	kept := rules[:0:0]
	for _, rule := range rules {
		if !rule.IsDue(today) {
			slog.Warn("Store returned a rule that is not due, ignoring",
				"rule_id", rule.ID,
				"active", rule.Active,
				"next", schedule.FormatDate(rule.NextOccurrence))
			continue
		}
		kept = append(kept, rule)
	}
	return kept
}

func sortMaterialized(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].RuleID < txns[j].RuleID
	})
}
