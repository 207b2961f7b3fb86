package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

// outcome is the result of processing one rule, merged into the report under a lock.
type outcome struct {
	materialized []model.Transaction
	failure      *service.RuleFailure
	advanced     int
	skipped      int
}

func (o outcome) apply(r *service.ProcessReport) {
	r.Materialized = append(r.Materialized, o.materialized...)
	r.Advanced += o.advanced
	r.Skipped += o.skipped
	if o.failure != nil {
		r.Failures = append(r.Failures, *o.failure)
	}
}

// processRule materializes one rule's due occurrences according to the
// catch-up policy, stopping at the first failure.
func (e *RecurrenceEngine) processRule(ctx context.Context, rule model.RecurrenceRule, today time.Time) outcome {
	var out outcome

	limit := 1
	if e.config.CatchUp == CatchUpAll {
		limit = e.config.MaxCatchUp
	}

	for i := 0; i < limit && rule.IsDue(today); i++ {
		if ctx.Err() != nil {
			break
		}
		txn, next, failure := e.processOccurrence(ctx, rule)
		if failure != nil {
			out.failure = failure
			break
		}
		if txn != nil {
			out.materialized = append(out.materialized, *txn)
		} else {
			out.skipped++
		}
		out.advanced++
		rule.NextOccurrence = next
	}

	if out.failure == nil && e.config.CatchUp == CatchUpAll && rule.IsDue(today) {
		slog.Warn("Rule still behind after catch-up limit",
			"rule_id", rule.ID,
			"limit", limit,
			"next", schedule.FormatDate(rule.NextOccurrence))
	}

	if e.observer != nil {
		var err error
		if out.failure != nil {
			err = out.failure.Err
		}
		e.observer.RuleDone(rule, err)
	}
	return out
}

// processOccurrence materializes the rule's current occurrence and advances
// it. It returns a nil transaction when the store already held this
// occurrence and only the advance was needed.
func (e *RecurrenceEngine) processOccurrence(ctx context.Context, rule model.RecurrenceRule) (*model.Transaction, time.Time, *service.RuleFailure) {
	occurrence := rule.NextOccurrence
	fail := func(stage service.FailureStage, err error) (*model.Transaction, time.Time, *service.RuleFailure) {
		return nil, time.Time{}, &service.RuleFailure{RuleID: rule.ID, Date: occurrence, Stage: stage, Err: err}
	}

	next, err := schedule.Advance(occurrence, rule.IntervalUnit, rule.IntervalValue)
	if err != nil {
		slog.Warn("Cannot schedule recurrence rule",
			"rule_id", rule.ID,
			"unit", rule.IntervalUnit,
			"value", rule.IntervalValue,
			"error", err)
		return fail(service.StageMaterialize, err)
	}

	txn := e.buildTransaction(rule)

	if materializer, ok := e.ledger.(service.OccurrenceMaterializer); ok && e.config.Atomic {
		callCtx, cancel := e.callContext(ctx)
		stored, err := materializer.MaterializeOccurrence(callCtx, txn, rule.ID, next)
		cancel()
		switch {
		case err == nil:
			logMaterialized(rule, stored, next)
			return stored, next, nil
		case errors.Is(err, service.ErrStaleAdvance):
			slog.Info("Rule advanced by another run, nothing recorded",
				"rule_id", rule.ID,
				"date", schedule.FormatDate(occurrence))
			return nil, next, nil
		case !errors.Is(err, service.ErrDuplicateOccurrence):
			logMaterializeFailure(rule, err)
			return fail(service.StageMaterialize, err)
		}
		return e.advanceExisting(ctx, rule, next, fail)
	}

	callCtx, cancel := e.callContext(ctx)
	stored, err := e.ledger.InsertTransaction(callCtx, txn)
	cancel()
	if err != nil {
		if errors.Is(err, service.ErrDuplicateOccurrence) {
			return e.advanceExisting(ctx, rule, next, fail)
		}
		logMaterializeFailure(rule, err)
		return fail(service.StageMaterialize, err)
	}

	callCtx, cancel = e.callContext(ctx)
	err = e.rules.Advance(callCtx, rule.ID, next)
	cancel()
	if err != nil && !errors.Is(err, service.ErrStaleAdvance) {
		slog.Error("Recorded recurring transaction but failed to advance its rule; the next run will record it again",
			"rule_id", rule.ID,
			"transaction_id", stored.ID,
			"date", schedule.FormatDate(occurrence),
			"next", schedule.FormatDate(next),
			"error", err)
		return fail(service.StageAdvance, err)
	}

	logMaterialized(rule, stored, next)
	return stored, next, nil
}

// advanceExisting advances a rule whose current occurrence is already in the ledger.
func (e *RecurrenceEngine) advanceExisting(
	ctx context.Context,
	rule model.RecurrenceRule,
	next time.Time,
	fail func(service.FailureStage, error) (*model.Transaction, time.Time, *service.RuleFailure),
) (*model.Transaction, time.Time, *service.RuleFailure) {
	slog.Info("Occurrence already recorded, advancing rule only",
		"rule_id", rule.ID,
		"date", schedule.FormatDate(rule.NextOccurrence))

	callCtx, cancel := e.callContext(ctx)
	err := e.rules.Advance(callCtx, rule.ID, next)
	cancel()
	if err != nil && !errors.Is(err, service.ErrStaleAdvance) {
		slog.Error("Failed to advance rule past recorded occurrence",
			"rule_id", rule.ID,
			"next", schedule.FormatDate(next),
			"error", err)
		return fail(service.StageAdvance, err)
	}
	return nil, next, nil
}

// buildTransaction derives the ledger entry for the rule's current occurrence.
// The entry is dated on the occurrence, not on the day the engine runs.
func (e *RecurrenceEngine) buildTransaction(rule model.RecurrenceRule) *model.Transaction {
	return &model.Transaction{
		OwnerID:     rule.OwnerID,
		RuleID:      rule.ID,
		Amount:      rule.Amount,
		Description: rule.Description + e.config.DescriptionSuffix,
		Category:    rule.Category,
		Kind:        rule.Kind,
		Date:        rule.NextOccurrence,
	}
}

func logMaterialized(rule model.RecurrenceRule, txn *model.Transaction, next time.Time) {
	slog.Debug("Materialized recurring transaction",
		"rule_id", rule.ID,
		"transaction_id", txn.ID,
		"amount", txn.Amount.String(),
		"date", schedule.FormatDate(txn.Date),
		"next", schedule.FormatDate(next))
}

func logMaterializeFailure(rule model.RecurrenceRule, err error) {
	slog.Warn("Failed to record recurring transaction, will retry next run",
		"rule_id", rule.ID,
		"date", schedule.FormatDate(rule.NextOccurrence),
		"error", err)
}
