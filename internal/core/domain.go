package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the on-disk representation of a creation date.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date without time of day, always in UTC.
	Date struct {
		time.Time
	}

	// Expense is one entry in the ledger.
	Expense struct {
		ID          int64
		Description string
		Amount      float64
		Category    string
		CreatedAt   Date
	}

	// ExpensePatch holds the mutable fields of an expense. Nil fields are left untouched.
	ExpensePatch struct {
		Description *string
		Amount      *float64
		Category    *string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrNoFieldsToUpdate = errors.New("at least one of the following arguments are required: --description, --amount, --category")
	ErrInvalidExpenseID = errors.New("invalid expense id")
	ErrCarriageReturn   = errors.New("description and category cannot contain carriage returns")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses "YEAR-MONTH-DAY". Zero padding is optional.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	d := NewDate(nums[0], nums[1], nums[2])
	// time.Date normalizes out of range values, e.g. 2025-02-30 becomes March 2nd
	if d.Year() != nums[0] || d.Month() != nums[1] || d.Day() != nums[2] {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	if m := d.Month(); m < 1 || m > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (e Expense) Validate() error {
	if e.ID < 1 {
		return ErrInvalidExpenseID
	}
	if err := e.CreatedAt.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := ValidateText(e.Description, e.Category); err != nil {
		return err
	}
	return ValidateAmount(e.Amount)
}

// ValidateText rejects carriage returns. Ledger files normalize "\r\n" to
// "\n" inside quoted fields, so such text would not read back unchanged.
func ValidateText(fields ...string) error {
	for _, f := range fields {
		if strings.ContainsRune(f, '\r') {
			return ErrCarriageReturn
		}
	}
	return nil
}

// ValidateAmount accepts finite, non-negative amounts.
func ValidateAmount(a float64) error {
	if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.Category == nil
}

func (p ExpensePatch) Validate() error {
	if p.IsEmpty() {
		return ErrNoFieldsToUpdate
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return ErrEmptyDescription
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return ErrEmptyCategory
	}
	if p.Description != nil {
		if err := ValidateText(*p.Description); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := ValidateText(*p.Category); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		return ValidateAmount(*p.Amount)
	}
	return nil
}

// Apply overwrites description, amount and category. ID and CreatedAt never change.
func (e *Expense) Apply(p ExpensePatch) {
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
}
