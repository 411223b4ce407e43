package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/core"
	"expense-tracker/internal/ledger"
	"expense-tracker/internal/sheets/memory"
)

var today = time.Date(2025, 7, 17, 9, 30, 0, 0, time.Local)

type recordingPublisher struct {
	events []*amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func seed() []core.Expense {
	return []core.Expense{
		{ID: 1, Description: "Groceries", Amount: 15, Category: "Food", CreatedAt: core.NewDate(2024, 1, 20)},
		{ID: 2, Description: "Lunch", Amount: 15, Category: "Food", CreatedAt: core.NewDate(2025, 1, 5)},
		{ID: 3, Description: "Bus pass", Amount: 30, Category: "Transport", CreatedAt: core.NewDate(2025, 3, 1)},
		{ID: 4, Description: "Dinner", Amount: 28.5, Category: "Food", CreatedAt: core.NewDate(2025, 7, 2)},
	}
}

func newTestService(items ...core.Expense) (*ExpenseService, *memory.Store, *recordingPublisher) {
	store := memory.New(items...)
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, store,
		WithEvents(pub),
		WithClock(func() time.Time { return today }))
	return svc, store, pub
}

func TestAdd_EmptyLedger(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService()

	e, warning, err := svc.Add(ctx, AddRequest{Description: "Coffee", Amount: 3.5, Category: "Food"})
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, core.NewDate(2025, 7, 17), e.CreatedAt)

	items, _ := store.LoadExpenses(ctx)
	assert.Equal(t, []core.Expense{e}, items)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.ExpenseCreated, pub.events[0].Type)
	assert.Equal(t, int64(1), pub.events[0].ExpenseID)
}

func TestAdd_NextIDFollowsLastRecord(t *testing.T) {
	svc, _, _ := newTestService(seed()...)
	e, _, err := svc.Add(context.Background(), AddRequest{Description: "Taxi", Amount: 12, Category: "Transport"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.ID)
}

func TestAdd_BudgetWarning(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(seed()[:2]...)

	budgets := core.DefaultBudgets()
	require.NoError(t, budgets.Set(1, 30))
	require.NoError(t, store.SaveBudgets(ctx, budgets))

	// 2025-01 already holds 15; the 2024-01 record must not count.
	_, warning, err := svc.Add(ctx, AddRequest{
		Description: "Books", Amount: 10, Category: "Education", Date: core.NewDate(2025, 1, 10),
	})
	require.NoError(t, err)
	assert.Nil(t, warning, "25 does not exceed 30")

	_, warning, err = svc.Add(ctx, AddRequest{
		Description: "Shoes", Amount: 20, Category: "Clothes", Date: core.NewDate(2025, 1, 12),
	})
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, BudgetWarning{Year: 2025, Month: 1, Total: 45, Budget: 30}, *warning)
}

func TestAdd_BudgetReachedExactlyIsNotExceeded(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	budgets := core.DefaultBudgets()
	require.NoError(t, budgets.Set(7, 20))
	require.NoError(t, store.SaveBudgets(ctx, budgets))

	_, warning, err := svc.Add(ctx, AddRequest{Description: "Exact", Amount: 20, Category: "Misc"})
	require.NoError(t, err)
	assert.Nil(t, warning)
}

func TestAdd_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  AddRequest
		want error
	}{
		{"empty description", AddRequest{Amount: 1, Category: "Food"}, core.ErrEmptyDescription},
		{"empty category", AddRequest{Description: "x", Amount: 1}, core.ErrEmptyCategory},
		{"negative amount", AddRequest{Description: "x", Amount: -1, Category: "Food"}, core.ErrInvalidAmount},
		{"carriage return", AddRequest{Description: "a\r\nb", Amount: 1, Category: "Food"}, core.ErrCarriageReturn},
		{"older than last record", AddRequest{Description: "x", Amount: 1, Category: "Food", Date: core.NewDate(2025, 6, 30)}, ledger.ErrOutOfOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, pub := newTestService(seed()...)

			_, _, err := svc.Add(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)

			items, _ := store.LoadExpenses(ctx)
			assert.Equal(t, seed(), items, "ledger must be untouched")
			assert.Empty(t, pub.events)
		})
	}
}

func TestAdd_SameDayAsLastRecord(t *testing.T) {
	svc, _, _ := newTestService(seed()...)
	e, _, err := svc.Add(context.Background(), AddRequest{
		Description: "Snack", Amount: 2, Category: "Food", Date: core.NewDate(2025, 7, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.ID)
}

func TestAdd_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService()
	pub.err = errors.New("broker down")

	_, _, err := svc.Add(ctx, AddRequest{Description: "Coffee", Amount: 3, Category: "Food"})
	require.NoError(t, err)

	items, _ := store.LoadExpenses(ctx)
	assert.Len(t, items, 1)
}

func TestAdd_WithoutPublisher(t *testing.T) {
	store := memory.New()
	svc := NewExpenseService(store, store)
	_, _, err := svc.Add(context.Background(), AddRequest{Description: "Coffee", Amount: 3, Category: "Food"})
	require.NoError(t, err)
}

func TestUnorderedLedgerIsRejected(t *testing.T) {
	items := seed()
	items[0], items[1] = items[1], items[0]
	svc, _, _ := newTestService(items...)

	_, err := svc.List(context.Background(), Query{})
	assert.ErrorIs(t, err, ledger.ErrUnordered)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService(seed()...)

	amount := 99.0
	desc := "Big dinner"
	e, warning, err := svc.Update(ctx, 4, core.ExpensePatch{Description: &desc, Amount: &amount})
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, "Big dinner", e.Description)
	assert.Equal(t, 99.0, e.Amount)
	assert.Equal(t, "Food", e.Category)

	items, _ := store.LoadExpenses(ctx)
	assert.Equal(t, e, items[3])
	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.ExpenseUpdated, pub.events[0].Type)
}

func TestUpdate_BudgetWarning(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(seed()...)

	budgets := core.DefaultBudgets()
	require.NoError(t, budgets.Set(3, 40))
	require.NoError(t, store.SaveBudgets(ctx, budgets))

	amount := 45.0
	_, warning, err := svc.Update(ctx, 3, core.ExpensePatch{Amount: &amount})
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, BudgetWarning{Year: 2025, Month: 3, Total: 45, Budget: 40}, *warning)
}

func TestUpdate_Errors(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService(seed()...)

	_, _, err := svc.Update(ctx, 2, core.ExpensePatch{})
	assert.ErrorIs(t, err, core.ErrNoFieldsToUpdate)

	cat := "Misc"
	_, _, err = svc.Update(ctx, 42, core.ExpensePatch{Category: &cat})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	crlf := "a\r\nb"
	_, _, err = svc.Update(ctx, 2, core.ExpensePatch{Description: &crlf})
	assert.ErrorIs(t, err, core.ErrCarriageReturn)

	items, _ := store.LoadExpenses(ctx)
	assert.Equal(t, seed(), items)
	assert.Empty(t, pub.events)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService(seed()...)

	removed, err := svc.Delete(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, seed()[1], removed)

	items, _ := store.LoadExpenses(ctx)
	assert.Equal(t, []int64{1, 3, 4}, ids(items))
	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.ExpenseDeleted, pub.events[0].Type)

	_, err = svc.Delete(ctx, 2)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService(seed()...)

	tests := []struct {
		name  string
		query Query
		want  []int64
	}{
		{"everything", Query{}, []int64{1, 2, 3, 4}},
		{"year", Query{Year: 2025}, []int64{2, 3, 4}},
		{"month and year", Query{Month: 1, Year: 2024}, []int64{1}},
		{"month defaults to current year", Query{Month: 1}, []int64{2}},
		{"category", Query{Category: "Food"}, []int64{1, 2, 4}},
		{"category is case sensitive", Query{Category: "food"}, []int64{}},
		{"year and category", Query{Year: 2025, Category: "Food"}, []int64{2, 4}},
		{"empty month", Query{Month: 2, Year: 2025}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := svc.List(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(items))
		})
	}

	_, err := svc.List(context.Background(), Query{Month: 13})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(seed()...)

	s, err := svc.Summary(ctx, Query{})
	require.NoError(t, err)
	assert.Nil(t, s.Period)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 88.5, s.Total)

	s, err = svc.Summary(ctx, Query{Month: 7, Category: "Food"})
	require.NoError(t, err)
	require.NotNil(t, s.Period)
	assert.False(t, s.Period.YearGiven)
	assert.Equal(t, 2025, s.Period.Year)
	assert.Equal(t, "Food", s.Category)
	assert.Equal(t, 28.5, s.Total)

	s, err = svc.Summary(ctx, Query{Year: 2023})
	require.NoError(t, err)
	assert.True(t, s.Period.YearGiven)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.Total)
}

func TestBudgets(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	rows, err := svc.Budgets(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Month)
		assert.True(t, math.IsInf(row.Amount, 1))
	}

	require.NoError(t, svc.SetBudget(ctx, []int{2, 5}, 150))
	rows, err = svc.Budgets(ctx, []int{5, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []MonthBudget{{5, 150}, {2, 150}, {3, math.Inf(1)}}, rows)

	require.NoError(t, svc.SetBudget(ctx, nil, 10))
	rows, _ = svc.Budgets(ctx, nil)
	for _, row := range rows {
		assert.Equal(t, 10.0, row.Amount)
	}

	require.NoError(t, svc.SetBudget(ctx, []int{2}, math.Inf(1)))
	rows, _ = svc.Budgets(ctx, []int{2})
	assert.True(t, math.IsInf(rows[0].Amount, 1))

	assert.ErrorIs(t, svc.SetBudget(ctx, []int{13}, 1), core.ErrInvalidMonth)
	assert.ErrorIs(t, svc.SetBudget(ctx, []int{1}, -5), core.ErrInvalidAmount)
	_, err = svc.Budgets(ctx, []int{0})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(seed()...)
	target := memory.New()

	ref, err := svc.Export(ctx, target, true)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	exports := target.Exports()
	require.Len(t, exports, 1)
	assert.True(t, exports[0].IncludeHeader)
	assert.Equal(t, seed(), exports[0].Items)
}

func ids(items []core.Expense) []int64 {
	out := make([]int64, 0, len(items))
	for _, e := range items {
		out = append(out, e.ID)
	}
	return out
}
