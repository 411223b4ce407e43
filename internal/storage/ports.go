package storage

import (
	"context"

	"expense-tracker/internal/core"
)

// Ports implemented by the ledger backends.
type (
	// LedgerStore persists the ordered expense collection.
	LedgerStore interface {
		LoadExpenses(ctx context.Context) ([]core.Expense, error)
		// SaveExpenses replaces the whole ledger.
		SaveExpenses(ctx context.Context, items []core.Expense) error
		// AppendExpense adds one record without rewriting the others.
		AppendExpense(ctx context.Context, e core.Expense) error
	}

	// BudgetStore persists the per-month budget table. Loading never fails:
	// missing or unreadable budgets fall back to core.DefaultBudgets.
	BudgetStore interface {
		LoadBudgets(ctx context.Context) core.Budgets
		SaveBudgets(ctx context.Context, b core.Budgets) error
	}
)
