package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"expense-tracker/internal/core"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: slog.LevelDebug, Component: component, Output: &buf}), &buf
}

func TestLoggerStampsComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentCLI)
	logger.Info("hello", FieldCount, 2)

	out := buf.String()
	assert.Contains(t, out, "component=cli")
	assert.Contains(t, out, "count=2")
	assert.Equal(t, ComponentCLI, logger.Component())
}

func TestLoggerWithComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentCLI)
	logger.WithComponent(ComponentStorage).Warn("disk")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "component="), out)
	assert.Contains(t, out, "component=storage")
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "component=app", "default component")
}

func TestForComponent(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		defaultLogger.Store(nil)
		slog.SetDefault(prev)
	})

	logger, buf := newBufferLogger(ComponentApp)
	SetDefault(logger)
	ForComponent(ComponentStorage).Debug("Ledger saved", FieldPath, "/tmp/expenses.csv")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "component="), out)
	assert.Contains(t, out, "component=storage")
	assert.Contains(t, out, "path=/tmp/expenses.csv")
	assert.Equal(t, ComponentAMQP, ForComponent(ComponentAMQP).Component())
}

func TestStructuredLogger(t *testing.T) {
	logger, buf := newBufferLogger(ComponentExpense)
	sl := NewStructuredLogger(logger)
	ctx := context.Background()

	sl.LogExpenseChanged(ctx, OpCreate, core.Expense{
		ID: 3, Description: "Lunch", Amount: 10, Category: "Food", CreatedAt: core.NewDate(2025, 7, 1),
	})
	sl.LogBudgetExceeded(ctx, 2025, 7, 120, 100)
	sl.LogWarning(ctx, "publish failed", errors.New("connection refused"), OpPublish)

	out := buf.String()
	for _, want := range []string{
		"expense_id=3", "date=2025-07-01", "operation=create",
		"budget=100.0", "month=7",
		`error="connection refused"`, "operation=publish", "level=WARN",
	} {
		assert.Contains(t, out, want)
	}
}
