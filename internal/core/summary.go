package core

import (
	"fmt"
	"math"
)

// MonthNames maps 1..12 to English month names. Index 0 is unused.
var MonthNames = [13]string{
	"",
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Budgets is the per-month spending ceiling table. Slot 0 is unused and
// slots 1..12 hold a non-negative amount or +Inf for "no cap".
type Budgets [13]float64

// DefaultBudgets returns a table with every month uncapped.
func DefaultBudgets() Budgets {
	var b Budgets
	for m := 1; m <= 12; m++ {
		b[m] = math.Inf(1)
	}
	return b
}

// ValidMonth reports whether m is a calendar month.
func ValidMonth(m int) bool {
	return m >= 1 && m <= 12
}

// MonthName returns the English name of month m.
func MonthName(m int) string {
	if !ValidMonth(m) {
		return fmt.Sprintf("Month(%d)", m)
	}
	return MonthNames[m]
}

// For returns the ceiling of month m.
func (b Budgets) For(month int) float64 {
	if !ValidMonth(month) {
		return math.Inf(1)
	}
	return b[month]
}

// Set stores a ceiling for month m.
func (b *Budgets) Set(month int, amount float64) error {
	if !ValidMonth(month) {
		return ErrInvalidMonth
	}
	if math.IsNaN(amount) || amount < 0 {
		return ErrInvalidAmount
	}
	b[month] = amount
	return nil
}

// Exceeded reports whether total goes over the ceiling of month m.
func (b Budgets) Exceeded(month int, total float64) bool {
	return total > b.For(month)
}

// Validate checks every month slot holds a usable ceiling.
func (b Budgets) Validate() error {
	for m := 1; m <= 12; m++ {
		if math.IsNaN(b[m]) || b[m] < 0 {
			return fmt.Errorf("%w: budget for %s", ErrInvalidAmount, MonthNames[m])
		}
	}
	return nil
}
