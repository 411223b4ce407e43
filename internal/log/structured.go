package log

import (
	"context"

	"expense-tracker/internal/core"
)

// StructuredLogger provides domain logging helpers on top of Logger.
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger. A nil logger uses the
// slog default.
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	if logger == nil {
		logger = ForComponent(ComponentApp)
	}
	return &StructuredLogger{logger: logger}
}

// Logger returns the wrapped logger.
func (sl *StructuredLogger) Logger() *Logger {
	return sl.logger
}

// LogExpenseChanged logs a successful write to the ledger.
func (sl *StructuredLogger) LogExpenseChanged(ctx context.Context, op string, e core.Expense) {
	fields := NewFields().
		WithExpense(e).
		WithOperation(op)
	sl.logger.InfoContext(ctx, "Ledger updated", fields.ToSlice()...)
}

// LogBudgetExceeded records that a month went over its ceiling.
func (sl *StructuredLogger) LogBudgetExceeded(ctx context.Context, year, month int, total, budget float64) {
	fields := NewFields().
		WithBudget(year, month, total, budget).
		WithOperation(OpBudget)
	sl.logger.InfoContext(ctx, "Monthly budget exceeded", fields.ToSlice()...)
}

// LogWarning logs a recoverable failure.
func (sl *StructuredLogger) LogWarning(ctx context.Context, msg string, err error, operation string) {
	fields := NewFields().
		WithError(err).
		WithOperation(operation)
	sl.logger.WarnContext(ctx, msg, fields.ToSlice()...)
}
