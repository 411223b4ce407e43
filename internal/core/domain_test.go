package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	assert.NoError(t, NewDate(2025, 1, 1).Validate())
	assert.NoError(t, NewDate(2025, 12, 31).Validate())
	assert.Error(t, Date{Time: time.Time{}}.Validate())
}

func TestParseDate(t *testing.T) {
	valid := map[string]Date{
		"2025-07-02":   NewDate(2025, 7, 2),
		"2025-7-2":     NewDate(2025, 7, 2),
		" 2024-12-31 ": NewDate(2024, 12, 31),
	}
	for in, want := range valid {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want.Time), "%q parsed as %v", in, got)
	}

	for _, in := range []string{"2025-02-30", "2025-13-01", "2025/07/02", "2025-07", ""} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestDateString(t *testing.T) {
	assert.Equal(t, "2025-05-06", NewDate(2025, 5, 6).String())
	assert.Equal(t, NewDate(2025, 7, 17), DateOf(time.Date(2025, 7, 17, 23, 59, 0, 0, time.UTC)))
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		ID:          1,
		Description: "Lunch",
		Amount:      15,
		Category:    "Food",
		CreatedAt:   NewDate(2025, 1, 1),
	}
	require.NoError(t, good.Validate())

	zero := good
	zero.Amount = 0
	assert.NoError(t, zero.Validate(), "zero amount")

	multiline := good
	multiline.Description = "line one\nline two"
	assert.NoError(t, multiline.Validate())

	tests := []struct {
		name string
		edit func(*Expense)
		err  error
	}{
		{"zero id", func(e *Expense) { e.ID = 0 }, ErrInvalidExpenseID},
		{"blank description", func(e *Expense) { e.Description = " " }, ErrEmptyDescription},
		{"negative amount", func(e *Expense) { e.Amount = -1 }, ErrInvalidAmount},
		{"empty category", func(e *Expense) { e.Category = "" }, ErrEmptyCategory},
		{"crlf in description", func(e *Expense) { e.Description = "line one\r\nline two" }, ErrCarriageReturn},
		{"cr in category", func(e *Expense) { e.Category = "Fo\rod" }, ErrCarriageReturn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := good
			tt.edit(&e)
			assert.ErrorIs(t, e.Validate(), tt.err)
		})
	}
}

func TestExpensePatch(t *testing.T) {
	assert.ErrorIs(t, ExpensePatch{}.Validate(), ErrNoFieldsToUpdate)

	crlf, cr := "a\r\nb", "Fo\rod"
	assert.ErrorIs(t, ExpensePatch{Description: &crlf}.Validate(), ErrCarriageReturn)
	assert.ErrorIs(t, ExpensePatch{Category: &cr}.Validate(), ErrCarriageReturn)

	desc, amount := "Dinner", 55.0
	patch := ExpensePatch{Description: &desc, Amount: &amount}
	require.NoError(t, patch.Validate())

	e := Expense{ID: 1, Description: "Lunch", Amount: 15, Category: "Food", CreatedAt: NewDate(2024, 7, 1)}
	e.Apply(patch)
	assert.Equal(t, Expense{ID: 1, Description: "Dinner", Amount: 55, Category: "Food", CreatedAt: NewDate(2024, 7, 1)}, e)
}
