package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

// memStore is an in-memory RecurrenceStore and TransactionStore with failure injection.
// It deliberately does not implement service.OccurrenceMaterializer.
type memStore struct {
	rules        map[string]*model.RecurrenceRule
	listErrs     []error // returned by successive ListDue calls before succeeding
	insertErr    map[string]error
	advanceErr   map[string]error
	blockInsert  map[string]bool
	rejectDupes  bool
	extraDue     []model.RecurrenceRule // returned by ListDue regardless of filters
	transactions []model.Transaction
	listCalls    int
	insertCalls  int
	advanceCalls int
	nextID       int
	mu           sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		rules:       make(map[string]*model.RecurrenceRule),
		insertErr:   make(map[string]error),
		advanceErr:  make(map[string]error),
		blockInsert: make(map[string]bool),
	}
}

func (m *memStore) ListDue(_ context.Context, ownerID string, asOf time.Time) ([]model.RecurrenceRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if len(m.listErrs) > 0 {
		err := m.listErrs[0]
		m.listErrs = m.listErrs[1:]
		return nil, err
	}

	var due []model.RecurrenceRule
	for _, r := range m.rules {
		if r.OwnerID == ownerID && r.Active && !r.NextOccurrence.After(asOf) {
			due = append(due, *r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return append(due, m.extraDue...), nil
}

func (m *memStore) InsertRule(_ context.Context, rule *model.RecurrenceRule) (*model.RecurrenceRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *rule
	if stored.ID == "" {
		m.nextID++
		stored.ID = fmt.Sprintf("rule-%02d", m.nextID)
	}
	m.rules[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *memStore) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	r.Active = active
	return nil
}

func (m *memStore) Advance(_ context.Context, id string, newDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceCalls++
	if err := m.advanceErr[id]; err != nil {
		return err
	}
	r, ok := m.rules[id]
	if !ok {
		return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	if !newDate.After(r.NextOccurrence) {
		return service.ErrStaleAdvance
	}
	r.NextOccurrence = newDate
	return nil
}

func (m *memStore) InsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	m.mu.Lock()
	block := m.blockInsert[txn.RuleID]
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if err := m.insertErr[txn.RuleID]; err != nil {
		return nil, err
	}
	if m.rejectDupes {
		for _, existing := range m.transactions {
			if existing.RuleID == txn.RuleID && existing.Date.Equal(txn.Date) {
				return nil, service.ErrDuplicateOccurrence
			}
		}
	}
	stored := *txn
	stored.ID = fmt.Sprintf("txn-%03d", len(m.transactions)+1)
	m.transactions = append(m.transactions, stored)
	return &stored, nil
}

func (m *memStore) rule(id string) model.RecurrenceRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rules[id]
}

func (m *memStore) txnsFor(ruleID string) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, t := range m.transactions {
		if t.RuleID == ruleID {
			out = append(out, t)
		}
	}
	return out
}

func (m *memStore) add(rule model.RecurrenceRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := rule
	m.rules[r.ID] = &r
}

// mockRecurrenceStore and mockTransactionStore fail the test on any unexpected call.
type mockRecurrenceStore struct {
	mock.Mock
}

func (m *mockRecurrenceStore) ListDue(ctx context.Context, ownerID string, asOf time.Time) ([]model.RecurrenceRule, error) {
	args := m.Called(ctx, ownerID, asOf)
	rules, _ := args.Get(0).([]model.RecurrenceRule)
	return rules, args.Error(1)
}

func (m *mockRecurrenceStore) InsertRule(ctx context.Context, rule *model.RecurrenceRule) (*model.RecurrenceRule, error) {
	args := m.Called(ctx, rule)
	stored, _ := args.Get(0).(*model.RecurrenceRule)
	return stored, args.Error(1)
}

func (m *mockRecurrenceStore) SetActive(ctx context.Context, id string, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *mockRecurrenceStore) Advance(ctx context.Context, id string, newDate time.Time) error {
	return m.Called(ctx, id, newDate).Error(0)
}

type mockTransactionStore struct {
	mock.Mock
}

func (m *mockTransactionStore) InsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	stored, _ := args.Get(0).(*model.Transaction)
	return stored, args.Error(1)
}

// recordingObserver captures progress callbacks.
type recordingObserver struct {
	done     []string
	errs     int
	total    int
	finished bool
	mu       sync.Mutex
}

func (o *recordingObserver) Start(total int) { o.total = total }

func (o *recordingObserver) RuleDone(rule model.RecurrenceRule, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done = append(o.done, rule.ID)
	if err != nil {
		o.errs++
	}
}

func (o *recordingObserver) Finish() { o.finished = true }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthlyRule(id string, amount string, next time.Time) model.RecurrenceRule {
	return model.RecurrenceRule{
		ID:             id,
		OwnerID:        "owner-1",
		Amount:         decimal.RequireFromString(amount),
		Description:    "Rule " + id,
		Category:       "Bills",
		Kind:           model.KindForAmount(decimal.RequireFromString(amount)),
		Active:         true,
		IntervalUnit:   model.UnitMonth,
		IntervalValue:  1,
		NextOccurrence: next,
	}
}
