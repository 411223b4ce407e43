package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"expense-tracker/internal/backend"
	"expense-tracker/internal/config"
	"expense-tracker/internal/core"
	"expense-tracker/internal/ledger"
	"expense-tracker/internal/log"
	"expense-tracker/internal/services"
)

const programName = "expense-tracker"

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// App holds the state of one command line invocation.
type App struct {
	Out io.Writer
	Err io.Writer
	// Now overrides the clock used for "today" and the current year.
	Now func() time.Time
	// NewFactory builds the backend factory once logging is configured.
	NewFactory func(logger *log.Logger) backend.Factory

	dataDir  string
	backend  string
	logLevel string

	cfg      *config.Config
	backends backend.Config
	factory  backend.Factory
	result   *backend.BackendResult
	service  *services.ExpenseService
	logger   *log.Logger
}

// NewApp returns an App writing command output to out and diagnostics to errOut.
func NewApp(out, errOut io.Writer) *App {
	return &App{
		Out: out,
		Err: errOut,
		Now: time.Now,
		NewFactory: func(logger *log.Logger) backend.Factory {
			return backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
		},
	}
}

// commandError marks failures raised while running a command, as opposed
// to command line parsing errors produced by cobra.
type commandError struct{ err error }

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func fail(err error) error {
	if err == nil {
		return nil
	}
	return &commandError{err: err}
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Track daily expenses against monthly budgets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// cobra runs these checks after the pre-run hooks; a usage error
			// must not open the backend.
			if err := cmd.ValidateRequiredFlags(); err != nil {
				return err
			}
			if err := cmd.ValidateFlagGroups(); err != nil {
				return err
			}
			return fail(a.bootstrap(cmd))
		},
	}
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.dataDir, "data-dir", "", "directory holding the ledger and budget files (env DATA_DIR)")
	flags.StringVar(&a.backend, "backend", "", fmt.Sprintf("storage backend %v (env DATA_BACKEND)", backend.GetBackendTypeStrings()))
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")

	for _, name := range commandOrder {
		root.AddCommand(commandBuilders[name](a))
	}
	return root
}

func (a *App) bootstrap(cmd *cobra.Command) error {
	flags := cmd.Flags()
	cfg, err := LoadAndValidateConfig(func(c *config.Config) {
		if flagChanged(flags, "data-dir") {
			c.DataDir = a.dataDir
			c.LedgerFile, c.BudgetFile, c.SQLiteDBPath = "", "", ""
		}
		if flagChanged(flags, "backend") {
			c.DataBackend = a.backend
		}
		if flagChanged(flags, "log-level") {
			c.LogLevel = a.logLevel
		}
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = SetupLogger(cfg.SlogLevel(), a.Err)

	a.backends, err = backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	a.factory = a.NewFactory(a.logger)

	ctx := cmd.Context()
	a.result, err = a.factory.CreateBackend(ctx, a.backends)
	if err != nil {
		return err
	}
	a.service = services.NewExpenseService(a.result.Ledger, a.result.Budgets,
		services.WithEvents(a.result.Events),
		services.WithClock(a.Now),
		services.WithLogger(a.logger))

	a.logger.DebugContext(ctx, "Command started",
		log.FieldOperation, cmd.Name(),
		log.FieldBackend, cfg.DataBackend)
	return nil
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

func (a *App) close() {
	if err := a.result.Close(); err != nil && a.logger != nil {
		a.logger.Warn("Failed to release backend resources", "error", err)
	}
	a.result = nil
}

// Run executes args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.RootCommand()
	root.SetArgs(args)
	defer a.close()

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}
	if ctx.Err() != nil {
		fmt.Fprintln(a.Out, "\nApplication is canceled by user.")
		return ExitError
	}

	prefix := programName
	if cmd != nil && cmd != root {
		prefix += " " + cmd.Name()
	}

	var ce *commandError
	if !errors.As(err, &ce) {
		if cmd != nil {
			fmt.Fprint(a.Err, cmd.UsageString())
		}
		fmt.Fprintf(a.Err, "%s: error: %v\n", prefix, err)
		return ExitUsage
	}
	if isInputError(ce.err) {
		fmt.Fprintf(a.Err, "%s: error: %v\n", prefix, ce.err)
		return ExitUsage
	}
	fmt.Fprintf(a.Err, "\nError: %v\n", ce.err)
	return ExitError
}

// isInputError reports whether err was caused by the arguments rather than
// by the stored data or the environment.
func isInputError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidMonth,
		core.ErrInvalidAmount,
		core.ErrEmptyDescription,
		core.ErrEmptyCategory,
		core.ErrNoFieldsToUpdate,
		core.ErrInvalidExpenseID,
		core.ErrCarriageReturn,
		ledger.ErrPeriodRequired,
		ledger.ErrOutOfOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Execute runs the command line of the current process and returns its exit code.
func Execute(ctx context.Context) int {
	return NewApp(os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
}
