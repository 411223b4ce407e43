// Package csvfile exports the ledger to a standalone CSV file.
package csvfile

import (
	"context"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
	"expense-tracker/internal/sheets"
	"expense-tracker/internal/storage"
)

func logger() *log.Logger { return log.ForComponent(log.ComponentSheets) }

type Exporter struct {
	Path string
}

var _ sheets.Exporter = (*Exporter)(nil)

func New(path string) *Exporter {
	return &Exporter{Path: path}
}

// Export overwrites the target file with items. The returned reference is the path.
func (e *Exporter) Export(ctx context.Context, items []core.Expense, includeHeader bool) (string, error) {
	if err := storage.SaveExpenses(e.Path, items, includeHeader); err != nil {
		return "", err
	}
	logger().DebugContext(ctx, "Ledger exported to CSV", log.FieldPath, e.Path, log.FieldCount, len(items), "header", includeHeader)
	return e.Path, nil
}
