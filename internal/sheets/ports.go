package sheets

import (
	"context"

	"expense-tracker/internal/core"
)

// Ports for outbound adapters.
type (
	// Exporter writes a full copy of the ledger somewhere outside the
	// primary store and returns a reference to where it went.
	Exporter interface {
		Export(ctx context.Context, items []core.Expense, includeHeader bool) (ref string, err error)
	}
)

// Header is the column row written ahead of exported expenses.
var Header = []string{"id", "description", "amount", "category", "createdAt"}
