package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"expense-tracker/internal/core"
	"expense-tracker/internal/services"
)

const descriptionHeader = "Description"

// pad left-aligns s in a field of width characters.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// listAmount renders an amount with thousands separators, e.g. "1,234.5".
func listAmount(a float64) string {
	s := humanize.Commaf(a)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func renderList(w io.Writer, items []core.Expense) {
	width := utf8.RuneCountInString(descriptionHeader)
	for _, e := range items {
		width = max(width, utf8.RuneCountInString(e.Description))
	}

	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", pad("ID", 4), pad("Date", 10), pad(descriptionHeader, width), pad("Amount", 8), "Category")
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", pad("--", 4), pad("----", 10), pad("-----------", width), pad("------", 8), "--------")
	for _, e := range items {
		fmt.Fprintf(w, "%s  %s  %s  $%s  %s\n",
			pad(strconv.FormatInt(e.ID, 10), 4),
			pad(e.CreatedAt.String(), 10),
			pad(e.Description, width),
			pad(listAmount(e.Amount), 8),
			e.Category)
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}

func renderSummary(w io.Writer, s services.Summary) {
	label := "Total"
	if s.Category != "" {
		label = capitalize(s.Category)
	}

	var period string
	if p := s.Period; p != nil {
		switch {
		case p.IsYear():
			period = fmt.Sprintf(" in %d", p.Year)
		case p.YearGiven:
			period = fmt.Sprintf(" in %s %d", core.MonthName(p.Month), p.Year)
		default:
			period = " in " + core.MonthName(p.Month)
		}
	}

	total := "0"
	if s.Count > 0 {
		total = core.FormatAmount(s.Total)
	}
	fmt.Fprintf(w, "%s expenses%s: $%s\n", label, period, total)
}

func renderBudgets(w io.Writer, rows []services.MonthBudget) {
	fmt.Fprintf(w, "%s  %s\n", pad("Month", 9), "Budget")
	fmt.Fprintf(w, "%s  %s\n", pad("-----", 9), "------")
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s\n", pad(core.MonthName(r.Month), 9), core.FormatAmount(r.Amount))
	}
}

func renderBudgetWarning(w io.Writer, bw *services.BudgetWarning) {
	if bw == nil {
		return
	}
	name := core.MonthName(bw.Month)
	fmt.Fprintf(w, "Warning: total expenses in %s %d reaches $%s, exceeds %s budget $%s.\n",
		name, bw.Year, core.FormatAmount(bw.Total), name, core.FormatAmount(bw.Budget))
}
