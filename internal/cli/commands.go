package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"expense-tracker/internal/core"
	"expense-tracker/internal/ledger"
	"expense-tracker/internal/log"
	"expense-tracker/internal/services"
	"expense-tracker/internal/sheets"
	"expense-tracker/internal/sheets/csvfile"
)

// Command names a subcommand of the tracker.
type Command string

const (
	CommandAdd     Command = "add"
	CommandUpdate  Command = "update"
	CommandDelete  Command = "delete"
	CommandList    Command = "list"
	CommandSummary Command = "summary"
	CommandBudget  Command = "budget"
	CommandExport  Command = "export"
)

var commandOrder = []Command{
	CommandAdd, CommandUpdate, CommandDelete, CommandList,
	CommandSummary, CommandBudget, CommandExport,
}

var commandBuilders = map[Command]func(*App) *cobra.Command{
	CommandAdd:     (*App).addCommand,
	CommandUpdate:  (*App).updateCommand,
	CommandDelete:  (*App).deleteCommand,
	CommandList:    (*App).listCommand,
	CommandSummary: (*App).summaryCommand,
	CommandBudget:  (*App).budgetCommand,
	CommandExport:  (*App).exportCommand,
}

func mustMarkRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func (a *App) warnMissing(id int64) {
	fmt.Fprintf(a.Out, "Warning: expense (ID: %d) does not exist.\n", id)
}

func (a *App) addCommand() *cobra.Command {
	var (
		req    services.AddRequest
		amount float64
	)
	cmd := &cobra.Command{
		Use:   string(CommandAdd),
		Short: "Add an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Amount = amount
			e, warning, err := a.service.Add(cmd.Context(), req)
			if err != nil {
				return fail(err)
			}
			fmt.Fprintf(a.Out, "Expense added successfully (ID: %d)\n", e.ID)
			renderBudgetWarning(a.Out, warning)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Description, "description", "", "matters that incur the expense")
	f.Var(amountValue{&amount}, "amount", "cost of the expense")
	f.StringVar(&req.Category, "category", "", "category of the expense")
	f.Var(dateValue{&req.Date}, "date", "creation date, defaults to today")
	mustMarkRequired(cmd, "description", "amount", "category")
	return cmd
}

func (a *App) updateCommand() *cobra.Command {
	var (
		id                    int64
		description, category string
		amount                float64
	)
	cmd := &cobra.Command{
		Use:   string(CommandUpdate),
		Short: "Update the description, amount or category of an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch core.ExpensePatch
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("amount") {
				patch.Amount = &amount
			}
			if cmd.Flags().Changed("category") {
				patch.Category = &category
			}
			_, warning, err := a.service.Update(cmd.Context(), id, patch)
			if errors.Is(err, ledger.ErrNotFound) {
				a.warnMissing(id)
				return nil
			}
			if err != nil {
				return fail(err)
			}
			renderBudgetWarning(a.Out, warning)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&id, "id", 0, "id of the expense")
	f.StringVar(&description, "description", "", "new description")
	f.Var(amountValue{&amount}, "amount", "new amount")
	f.StringVar(&category, "category", "", "new category")
	mustMarkRequired(cmd, "id")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   string(CommandDelete),
		Short: "Delete an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.service.Delete(cmd.Context(), id)
			if errors.Is(err, ledger.ErrNotFound) {
				a.warnMissing(id)
				return nil
			}
			if err != nil {
				return fail(err)
			}
			fmt.Fprintf(a.Out, "Expense (ID: %d) deleted successfully.\n", id)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "id of the expense")
	mustMarkRequired(cmd, "id")
	return cmd
}

func bindQueryFlags(cmd *cobra.Command, q *services.Query) {
	f := cmd.Flags()
	f.Var(monthValue{&q.Month}, "month", "month 1-12, in the current year unless --year is given")
	f.Var(yearValue{&q.Year}, "year", "year")
	f.StringVar(&q.Category, "category", "", "category")
}

func (a *App) listCommand() *cobra.Command {
	var q services.Query
	cmd := &cobra.Command{
		Use:   string(CommandList),
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.service.List(cmd.Context(), q)
			if err != nil {
				return fail(err)
			}
			renderList(a.Out, items)
			return nil
		},
	}
	bindQueryFlags(cmd, &q)
	return cmd
}

func (a *App) summaryCommand() *cobra.Command {
	var q services.Query
	cmd := &cobra.Command{
		Use:   string(CommandSummary),
		Short: "Total the expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.service.Summary(cmd.Context(), q)
			if err != nil {
				return fail(err)
			}
			renderSummary(a.Out, s)
			return nil
		},
	}
	bindQueryFlags(cmd, &q)
	return cmd
}

func (a *App) budgetCommand() *cobra.Command {
	var (
		months []int
		amount float64
	)
	cmd := &cobra.Command{
		Use:   string(CommandBudget),
		Short: "Show or set monthly budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("amount") {
				return fail(a.service.SetBudget(ctx, months, amount))
			}
			rows, err := a.service.Budgets(ctx, months)
			if err != nil {
				return fail(err)
			}
			renderBudgets(a.Out, rows)
			return nil
		},
	}
	f := cmd.Flags()
	f.Var(monthListValue{&months}, "month", "months 1-12, repeated or comma separated (default all)")
	f.Var(budgetAmountValue{&amount}, "amount", "budget to set, 'inf' removes the cap")
	return cmd
}

func (a *App) exportCommand() *cobra.Command {
	var (
		path          string
		toSheets      bool
		includeHeader bool
	)
	cmd := &cobra.Command{
		Use:   string(CommandExport),
		Short: "Export the expenses to a CSV file or Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var exp sheets.Exporter = csvfile.New(path)
			if toSheets {
				if !a.cfg.SheetsEnabled() {
					return fail(errors.New("Google Sheets export is not configured: set GOOGLE_SPREADSHEET_ID"))
				}
				var err error
				if exp, err = a.factory.CreateSheetsExporter(ctx, a.backends); err != nil {
					return fail(err)
				}
			}
			ref, err := a.service.Export(ctx, exp, includeHeader)
			if err != nil {
				return fail(err)
			}
			a.logger.InfoContext(ctx, "Ledger exported", log.FieldOperation, log.OpExport, log.FieldRef, ref)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&path, "csv", "", "path of the CSV file to write")
	f.BoolVar(&toSheets, "sheets", false, "write to the configured Google spreadsheet")
	f.BoolVar(&includeHeader, "include", false, "include a header row")
	cmd.MarkFlagsMutuallyExclusive("csv", "sheets")
	cmd.MarkFlagsOneRequired("csv", "sheets")
	return cmd
}
