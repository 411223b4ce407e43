package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"expense-tracker/internal/core"
	"expense-tracker/internal/sheets"
	"expense-tracker/internal/storage"
)

// Store keeps the ledger, the budget table and every export in memory.
type Store struct {
	mu      sync.Mutex
	items   []core.Expense
	budgets core.Budgets
	exports []Export
}

// Export is one captured call to Store.Export.
type Export struct {
	Items         []core.Expense
	IncludeHeader bool
}

var (
	_ storage.LedgerStore = (*Store)(nil)
	_ storage.BudgetStore = (*Store)(nil)
	_ sheets.Exporter     = (*Store)(nil)
)

// New returns a store seeded with items. The seed is copied.
func New(items ...core.Expense) *Store {
	return &Store{items: slices.Clone(items), budgets: core.DefaultBudgets()}
}

func (s *Store) LoadExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) SaveExpenses(_ context.Context, items []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(items)
	return nil
}

func (s *Store) AppendExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return nil
}

func (s *Store) LoadBudgets(_ context.Context) core.Budgets {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgets
}

func (s *Store) SaveBudgets(_ context.Context, b core.Budgets) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = b
	return nil
}

// Export records the rows and returns a synthetic reference.
func (s *Store) Export(_ context.Context, items []core.Expense, includeHeader bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, Export{Items: slices.Clone(items), IncludeHeader: includeHeader})
	return fmt.Sprintf("mem:%d", len(s.exports)), nil
}

// Exports returns every captured export, oldest first.
func (s *Store) Exports() []Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.exports)
}
