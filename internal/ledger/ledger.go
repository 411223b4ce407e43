package ledger

import (
	"errors"
	"fmt"
	"slices"

	"expense-tracker/internal/core"
)

var (
	ErrNotFound   = errors.New("expense does not exist")
	ErrOutOfOrder = errors.New("expense is older than the latest ledger entry")
	ErrUnordered  = errors.New("ledger is not ordered by creation date and id")
)

// Ledger is the full collection of expenses ordered by (CreatedAt, ID). The
// ordering is what makes FindByID and FilterByDate correct, so the only way
// in is Append, which refuses entries that would break it.
type Ledger struct {
	items []core.Expense
}

// New wraps items after checking that dates are non-decreasing and ids are
// strictly increasing.
func New(items []core.Expense) (*Ledger, error) {
	for i := 1; i < len(items); i++ {
		if err := checkOrder(items[i-1], items[i]); err != nil {
			return nil, fmt.Errorf("%w: entry %d (ID: %d): %v", ErrUnordered, i+1, items[i].ID, err)
		}
	}
	return &Ledger{items: slices.Clone(items)}, nil
}

func checkOrder(prev, next core.Expense) error {
	if next.CreatedAt.Before(prev.CreatedAt.Time) {
		return fmt.Errorf("date %s before %s", next.CreatedAt, prev.CreatedAt)
	}
	if next.ID <= prev.ID {
		return fmt.Errorf("id %d not greater than %d", next.ID, prev.ID)
	}
	return nil
}

// Len returns the number of expenses.
func (l *Ledger) Len() int { return len(l.items) }

// Items returns a copy of the expenses in ledger order.
func (l *Ledger) Items() []core.Expense { return slices.Clone(l.items) }

// NextID is one past the highest id in the ledger, or 1 for an empty ledger.
// Ids increase along the ledger so the highest one is the last.
func (l *Ledger) NextID() int64 {
	if len(l.items) == 0 {
		return 1
	}
	return l.items[len(l.items)-1].ID + 1
}

// Append adds e at the end of the ledger.
func (l *Ledger) Append(e core.Expense) error {
	if n := len(l.items); n > 0 {
		if err := checkOrder(l.items[n-1], e); err != nil {
			return fmt.Errorf("%w: %v", ErrOutOfOrder, err)
		}
	}
	l.items = append(l.items, e)
	return nil
}

// Index returns the position of the expense with the given id.
func (l *Ledger) Index(id int64) (int, bool) {
	return FindByID(l.items, id)
}

// Get returns the expense with the given id.
func (l *Ledger) Get(id int64) (core.Expense, error) {
	i, ok := l.Index(id)
	if !ok {
		return core.Expense{}, fmt.Errorf("%w (ID: %d)", ErrNotFound, id)
	}
	return l.items[i], nil
}

// Update applies p to the expense with the given id and returns the result.
func (l *Ledger) Update(id int64, p core.ExpensePatch) (core.Expense, error) {
	if err := p.Validate(); err != nil {
		return core.Expense{}, err
	}
	i, ok := l.Index(id)
	if !ok {
		return core.Expense{}, fmt.Errorf("%w (ID: %d)", ErrNotFound, id)
	}
	l.items[i].Apply(p)
	return l.items[i], nil
}

// Delete removes the expense with the given id.
func (l *Ledger) Delete(id int64) (core.Expense, error) {
	i, ok := l.Index(id)
	if !ok {
		return core.Expense{}, fmt.Errorf("%w (ID: %d)", ErrNotFound, id)
	}
	removed := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	return removed, nil
}

// InPeriod returns a copy of the expenses created inside p.
func (l *Ledger) InPeriod(p Period) ([]core.Expense, error) {
	items, err := FilterByDate(l.items, p)
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

// MonthTotal sums the expenses of one calendar month.
func (l *Ledger) MonthTotal(year, month int) (float64, error) {
	items, err := FilterByDate(l.items, Period{Year: year, Month: month, YearGiven: true})
	if err != nil {
		return 0, err
	}
	return Total(items), nil
}
