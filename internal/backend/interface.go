package backend

import (
	"context"
	"time"

	"expense-tracker/internal/services"
	"expense-tracker/internal/sheets"
	"expense-tracker/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the stores selected by configuration and optional
// event publishing. Events is nil when publishing is disabled.
type BackendResult struct {
	Ledger  storage.LedgerStore
	Budgets storage.BudgetStore
	Events  services.EventPublisher
	Cleanup CleanupFunc
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the ledger and budget stores for config.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateSheetsExporter connects to the configured Google spreadsheet.
	CreateSheetsExporter(ctx context.Context, config Config) (sheets.Exporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// csv
	LedgerPath string
	BudgetPath string

	// sqlite
	SQLiteDBPath string

	// Optional event publishing, any backend
	AMQPURL            string
	AMQPExchange       string
	AMQPRoutingKey     string
	AMQPPublishTimeout time.Duration

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
