package log

import "expense-tracker/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldExpenseID   = "expense_id"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldTotal       = "total"
	FieldBudget      = "budget"
	FieldPath        = "path"
	FieldBackend     = "backend"
	FieldCount       = "count"
	FieldRef         = "ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentExpense = "expense"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentWorker  = "worker"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpBudget   = "budget"
	OpExport   = "export"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds the fields of one ledger record
func (f LogFields) WithExpense(e core.Expense) LogFields {
	f[FieldExpenseID] = e.ID
	f[FieldDescription] = e.Description
	f[FieldAmount] = e.Amount
	f[FieldCategory] = e.Category
	f[FieldDate] = e.CreatedAt.String()
	return f
}

// WithBudget adds the month, its running total and its ceiling
func (f LogFields) WithBudget(year, month int, total, budget float64) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	f[FieldTotal] = total
	f[FieldBudget] = core.FormatAmount(budget)
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
