package services

import (
	"context"
	"fmt"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/core"
	"expense-tracker/internal/ledger"
	"expense-tracker/internal/log"
	"expense-tracker/internal/sheets"
	"expense-tracker/internal/storage"
)

// EventPublisher receives a message for every change written to the ledger.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
	Close() error
}

// ExpenseService runs ledger operations against the configured stores.
// Operations are not safe for concurrent use on the same underlying files.
type ExpenseService struct {
	ledger  storage.LedgerStore
	budgets storage.BudgetStore
	events  EventPublisher
	now     func() time.Time
	log     *log.StructuredLogger
}

type Option func(*ExpenseService)

// WithEvents enables change events. A nil publisher disables them.
func WithEvents(p EventPublisher) Option {
	return func(s *ExpenseService) { s.events = p }
}

// WithClock replaces time.Now, which decides today's date and the current year.
func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *ExpenseService) { s.log = log.NewStructuredLogger(l.WithComponent(log.ComponentExpense)) }
}

func NewExpenseService(ledgerStore storage.LedgerStore, budgetStore storage.BudgetStore, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		ledger:  ledgerStore,
		budgets: budgetStore,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.NewStructuredLogger(nil)
	}
	return s
}

// AddRequest describes a new expense. A zero Date means today.
type AddRequest struct {
	Description string
	Amount      float64
	Category    string
	Date        core.Date
}

// BudgetWarning reports a month whose total went over its ceiling.
type BudgetWarning struct {
	Year   int
	Month  int
	Total  float64
	Budget float64
}

// Query narrows List and Summary. Zero values mean "no filter".
type Query struct {
	Month    int
	Year     int
	Category string
}

// Summary is the outcome of a Summary call.
type Summary struct {
	// Period is nil when no date filter was applied.
	Period   *ledger.Period
	Category string
	Count    int
	Total    float64
}

// MonthBudget is one row of the budget table.
type MonthBudget struct {
	Month  int
	Amount float64
}

func (s *ExpenseService) loadLedger(ctx context.Context) (*ledger.Ledger, error) {
	items, err := s.ledger.LoadExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.New(items)
}

// Add appends a new expense with the next id and checks its month's budget.
func (s *ExpenseService) Add(ctx context.Context, req AddRequest) (core.Expense, *BudgetWarning, error) {
	date := req.Date
	if date.IsZero() {
		date = core.DateOf(s.now())
	}

	l, err := s.loadLedger(ctx)
	if err != nil {
		return core.Expense{}, nil, err
	}

	e := core.Expense{
		ID:          l.NextID(),
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		CreatedAt:   date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, nil, err
	}
	if err := l.Append(e); err != nil {
		return core.Expense{}, nil, err
	}
	if err := s.ledger.AppendExpense(ctx, e); err != nil {
		return core.Expense{}, nil, fmt.Errorf("save expense: %w", err)
	}

	s.log.LogExpenseChanged(ctx, log.OpCreate, e)
	s.publish(ctx, amqp.ExpenseCreated, e)

	warning, err := s.checkBudget(ctx, l, e.CreatedAt)
	if err != nil {
		return e, nil, err
	}
	return e, warning, nil
}

// Update overwrites the supplied fields of an expense and rechecks its month.
func (s *ExpenseService) Update(ctx context.Context, id int64, patch core.ExpensePatch) (core.Expense, *BudgetWarning, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, nil, err
	}

	l, err := s.loadLedger(ctx)
	if err != nil {
		return core.Expense{}, nil, err
	}
	e, err := l.Update(id, patch)
	if err != nil {
		return core.Expense{}, nil, err
	}
	if err := s.ledger.SaveExpenses(ctx, l.Items()); err != nil {
		return core.Expense{}, nil, fmt.Errorf("save ledger: %w", err)
	}

	s.log.LogExpenseChanged(ctx, log.OpUpdate, e)
	s.publish(ctx, amqp.ExpenseUpdated, e)

	warning, err := s.checkBudget(ctx, l, e.CreatedAt)
	if err != nil {
		return e, nil, err
	}
	return e, warning, nil
}

// Delete removes an expense and returns it.
func (s *ExpenseService) Delete(ctx context.Context, id int64) (core.Expense, error) {
	l, err := s.loadLedger(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := l.Delete(id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.ledger.SaveExpenses(ctx, l.Items()); err != nil {
		return core.Expense{}, fmt.Errorf("save ledger: %w", err)
	}

	s.log.LogExpenseChanged(ctx, log.OpDelete, e)
	s.publish(ctx, amqp.ExpenseDeleted, e)
	return e, nil
}

// List returns the expenses matching q in ledger order.
func (s *ExpenseService) List(ctx context.Context, q Query) ([]core.Expense, error) {
	items, _, err := s.query(ctx, q)
	return items, err
}

// Summary totals the expenses matching q.
func (s *ExpenseService) Summary(ctx context.Context, q Query) (Summary, error) {
	items, period, err := s.query(ctx, q)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Period: period, Category: q.Category, Count: len(items), Total: ledger.Total(items)}, nil
}

func (s *ExpenseService) query(ctx context.Context, q Query) ([]core.Expense, *ledger.Period, error) {
	var period *ledger.Period
	if q.Month != 0 || q.Year != 0 {
		p, err := ledger.NewPeriod(q.Month, q.Year, s.now())
		if err != nil {
			return nil, nil, err
		}
		period = &p
	}

	l, err := s.loadLedger(ctx)
	if err != nil {
		return nil, nil, err
	}

	items := l.Items()
	if period != nil {
		if items, err = l.InPeriod(*period); err != nil {
			return nil, nil, err
		}
	}
	if q.Category != "" {
		items = ledger.FilterByCategory(items, q.Category)
	}
	return items, period, nil
}

// Budgets returns the ceilings of months, or of the whole year when months is empty.
func (s *ExpenseService) Budgets(ctx context.Context, months []int) ([]MonthBudget, error) {
	months, err := resolveMonths(months)
	if err != nil {
		return nil, err
	}
	table := s.budgets.LoadBudgets(ctx)
	out := make([]MonthBudget, 0, len(months))
	for _, m := range months {
		out = append(out, MonthBudget{Month: m, Amount: table.For(m)})
	}
	return out, nil
}

// SetBudget stores amount as the ceiling of months, or of every month when
// months is empty. +Inf removes the cap.
func (s *ExpenseService) SetBudget(ctx context.Context, months []int, amount float64) error {
	months, err := resolveMonths(months)
	if err != nil {
		return err
	}
	table := s.budgets.LoadBudgets(ctx)
	for _, m := range months {
		if err := table.Set(m, amount); err != nil {
			return err
		}
	}
	if err := s.budgets.SaveBudgets(ctx, table); err != nil {
		return fmt.Errorf("save budgets: %w", err)
	}
	return nil
}

// Export hands the whole ledger to exp.
func (s *ExpenseService) Export(ctx context.Context, exp sheets.Exporter, includeHeader bool) (string, error) {
	l, err := s.loadLedger(ctx)
	if err != nil {
		return "", err
	}
	ref, err := exp.Export(ctx, l.Items(), includeHeader)
	if err != nil {
		return "", fmt.Errorf("export ledger: %w", err)
	}
	return ref, nil
}

// checkBudget compares the month of date against its ceiling. Budgets are per
// calendar month regardless of year.
func (s *ExpenseService) checkBudget(ctx context.Context, l *ledger.Ledger, date core.Date) (*BudgetWarning, error) {
	year, month := date.Year(), date.Month()
	total, err := l.MonthTotal(year, month)
	if err != nil {
		return nil, err
	}
	table := s.budgets.LoadBudgets(ctx)
	if !table.Exceeded(month, total) {
		return nil, nil
	}
	s.log.LogBudgetExceeded(ctx, year, month, total, table.For(month))
	return &BudgetWarning{Year: year, Month: month, Total: total, Budget: table.For(month)}, nil
}

func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, e)); err != nil {
		s.log.LogWarning(ctx, "Failed to publish expense event", err, log.OpPublish)
	}
}

func resolveMonths(months []int) ([]int, error) {
	if len(months) == 0 {
		all := make([]int, 12)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}
	for _, m := range months {
		if !core.ValidMonth(m) {
			return nil, fmt.Errorf("%w: %d", core.ErrInvalidMonth, m)
		}
	}
	return months, nil
}
