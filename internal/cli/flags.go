package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"expense-tracker/internal/core"
)

// amountValue is a non-negative amount flag.
type amountValue struct{ v *float64 }

func (a amountValue) String() string {
	if a.v == nil {
		return ""
	}
	return core.FormatAmount(*a.v)
}

func (a amountValue) Set(s string) error {
	v, err := core.ParseAmount(s)
	if err != nil {
		return fmt.Errorf("invalid non-negative float value: '%s'", s)
	}
	*a.v = v
	return nil
}

func (amountValue) Type() string { return "AMOUNT" }

// budgetAmountValue also accepts "inf" for an uncapped month.
type budgetAmountValue struct{ v *float64 }

func (b budgetAmountValue) String() string {
	if b.v == nil {
		return ""
	}
	return core.FormatAmount(*b.v)
}

func (b budgetAmountValue) Set(s string) error {
	v, err := core.ParseBudgetAmount(s)
	if err != nil {
		return fmt.Errorf("invalid non-negative float value: '%s'", s)
	}
	*b.v = v
	return nil
}

func (budgetAmountValue) Type() string { return "AMOUNT" }

// dateValue parses YYYY-MM-DD.
type dateValue struct{ v *core.Date }

func (d dateValue) String() string {
	if d.v == nil || d.v.IsZero() {
		return ""
	}
	return d.v.String()
}

func (d dateValue) Set(s string) error {
	v, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date value: '%s'", s)
	}
	*d.v = v
	return nil
}

func (dateValue) Type() string { return "YYYY-MM-DD" }

func parseMonth(s string) (int, error) {
	m, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid int value: '%s'", s)
	}
	if !core.ValidMonth(m) {
		return 0, fmt.Errorf("invalid choice: %d (choose from 1 to 12)", m)
	}
	return m, nil
}

// monthValue is a single month in 1..12.
type monthValue struct{ v *int }

func (m monthValue) String() string {
	if m.v == nil || *m.v == 0 {
		return ""
	}
	return strconv.Itoa(*m.v)
}

func (m monthValue) Set(s string) error {
	v, err := parseMonth(s)
	if err != nil {
		return err
	}
	*m.v = v
	return nil
}

func (monthValue) Type() string { return "MONTH" }

// monthListValue collects months from repeated flags or a comma separated list.
type monthListValue struct{ v *[]int }

func (m monthListValue) String() string {
	if m.v == nil {
		return ""
	}
	parts := make([]string, len(*m.v))
	for i, month := range *m.v {
		parts[i] = strconv.Itoa(month)
	}
	return strings.Join(parts, ",")
}

func (m monthListValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		v, err := parseMonth(part)
		if err != nil {
			return err
		}
		*m.v = append(*m.v, v)
	}
	return nil
}

func (monthListValue) Type() string { return "MONTH" }

// yearValue is a positive calendar year.
type yearValue struct{ v *int }

func (y yearValue) String() string {
	if y.v == nil || *y.v == 0 {
		return ""
	}
	return strconv.Itoa(*y.v)
}

func (y yearValue) Set(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 || v > 9999 {
		return fmt.Errorf("invalid year value: '%s'", s)
	}
	*y.v = v
	return nil
}

func (yearValue) Type() string { return "YEAR" }

var (
	_ pflag.Value = amountValue{}
	_ pflag.Value = budgetAmountValue{}
	_ pflag.Value = dateValue{}
	_ pflag.Value = monthValue{}
	_ pflag.Value = monthListValue{}
	_ pflag.Value = yearValue{}
)
