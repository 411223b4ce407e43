// Package ledger keeps the expense collection ordered by creation date and id
// and answers range queries over it with binary search.
package ledger

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/core"
)

var (
	// ErrPeriodRequired is returned when neither a month nor a year is given.
	ErrPeriodRequired = errors.New("one of the following arguments must be provided: month, year")
)

// LowerBound returns the smallest index in [low, high) whose key is not less
// than target, or high when every key is smaller. The sub-range must be sorted
// by key according to compare.
func LowerBound[E, K any](seq []E, target K, low, high int, key func(E) K, compare func(a, b K) int) int {
	for low < high {
		mid := int(uint(low+high) >> 1)
		if compare(key(seq[mid]), target) < 0 {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low
}

// FindByID returns the index of the expense with the given id. Ids are
// increasing in ledger order.
func FindByID(items []core.Expense, id int64) (int, bool) {
	n := len(items)
	i := LowerBound(items, id, 0, n, expenseID, cmp.Compare[int64])
	if i == n || items[i].ID != id {
		return 0, false
	}
	return i, true
}

// MonthKey orders dates by (year, month). Month 13 only appears as the
// exclusive upper bound of a December range.
type MonthKey struct {
	Year  int
	Month int
}

// Compare orders keys by year then month.
func (k MonthKey) Compare(o MonthKey) int {
	if c := cmp.Compare(k.Year, o.Year); c != 0 {
		return c
	}
	return cmp.Compare(k.Month, o.Month)
}

func monthKeyOf(e core.Expense) MonthKey {
	return MonthKey{Year: e.CreatedAt.Year(), Month: e.CreatedAt.Month()}
}

func compareMonthKeys(a, b MonthKey) int { return a.Compare(b) }

func expenseID(e core.Expense) int64 { return e.ID }

// Period selects a calendar month, or a whole year when Month is zero.
type Period struct {
	Year  int
	Month int
	// YearGiven records whether Year came from the caller or from the clock.
	YearGiven bool
}

// NewPeriod resolves user input into a Period. A month without a year falls
// in the current year of now.
func NewPeriod(month, year int, now time.Time) (Period, error) {
	if month == 0 && year == 0 {
		return Period{}, ErrPeriodRequired
	}
	if month != 0 && !core.ValidMonth(month) {
		return Period{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	p := Period{Year: year, Month: month, YearGiven: year != 0}
	if year == 0 {
		p.Year = now.Year()
	}
	return p, nil
}

// IsYear reports whether the period covers a whole year.
func (p Period) IsYear() bool { return p.Month == 0 }

// Bounds returns the inclusive start key and the exclusive stop key.
func (p Period) Bounds() (start, stop MonthKey) {
	if p.IsYear() {
		return MonthKey{p.Year, 1}, MonthKey{p.Year + 1, 1}
	}
	return MonthKey{p.Year, p.Month}, MonthKey{p.Year, p.Month + 1}
}

func (p Period) String() string {
	if p.IsYear() {
		return fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf("%s %d", core.MonthName(p.Month), p.Year)
}

// FilterByDate returns the contiguous run of expenses created inside p. The
// result shares storage with items.
func FilterByDate(items []core.Expense, p Period) ([]core.Expense, error) {
	if p.Month == 0 && p.Year == 0 {
		return nil, ErrPeriodRequired
	}
	if !p.IsYear() && !core.ValidMonth(p.Month) {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidMonth, p.Month)
	}
	n := len(items)
	startKey, stopKey := p.Bounds()
	start := LowerBound(items, startKey, 0, n, monthKeyOf, compareMonthKeys)
	stop := LowerBound(items, stopKey, start, n, monthKeyOf, compareMonthKeys)
	return items[start:stop], nil
}

// FilterByCategory returns the expenses whose category equals category,
// case-sensitively, preserving order.
func FilterByCategory(items []core.Expense, category string) []core.Expense {
	out := []core.Expense{}
	for _, e := range items {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Total sums the amounts of items.
func Total(items []core.Expense) float64 {
	var sum float64
	for _, e := range items {
		sum += e.Amount
	}
	return sum
}
