package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/services"
	"expense-tracker/internal/sheets"
	gsheet "expense-tracker/internal/sheets/google"
	"expense-tracker/internal/sheets/memory"
	"expense-tracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger

	// newPublisher dials the broker; tests replace it.
	newPublisher func(url string, opts amqp.Options) (services.EventPublisher, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		newPublisher: func(url string, opts amqp.Options) (services.EventPublisher, error) {
			p, err := amqp.NewPublisher(url, opts)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case CSVBackend:
		result = f.createCSVBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(ctx, config, result)
	return result, nil
}

func (f *DefaultFactory) createCSVBackend(config Config) *BackendResult {
	f.logger.Debug("Initialized CSV backend",
		"ledger_path", config.LedgerPath,
		"budget_path", config.BudgetPath)

	return &BackendResult{
		Ledger:  storage.NewCSVLedger(config.LedgerPath),
		Budgets: storage.NewJSONBudgets(config.BudgetPath),
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Debug("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:  repo,
		Budgets: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	store := memory.New()
	f.logger.Debug("Initialized memory backend")
	return &BackendResult{
		Ledger:  store,
		Budgets: store,
	}
}

// attachPublisher connects to the broker when one is configured. A broker that
// cannot be reached disables events for this run.
func (f *DefaultFactory) attachPublisher(ctx context.Context, config Config, result *BackendResult) {
	if config.AMQPURL == "" {
		return
	}
	pub, err := f.newPublisher(config.AMQPURL, amqp.Options{
		Exchange:       config.AMQPExchange,
		RoutingKey:     config.AMQPRoutingKey,
		PublishTimeout: config.AMQPPublishTimeout,
	})
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP publisher, continuing without events", "error", err)
		return
	}
	f.logger.DebugContext(ctx, "Initialized AMQP publisher",
		"exchange", config.AMQPExchange,
		"routing_key", config.AMQPRoutingKey)

	result.Events = pub
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		pubErr := pub.Close()
		if storeCleanup != nil {
			if err := storeCleanup(); err != nil {
				return err
			}
		}
		return pubErr
	}
}

// CreateSheetsExporter implements Factory.CreateSheetsExporter
func (f *DefaultFactory) CreateSheetsExporter(ctx context.Context, config Config) (sheets.Exporter, error) {
	exp, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.DebugContext(ctx, "Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
	return exp, nil
}
