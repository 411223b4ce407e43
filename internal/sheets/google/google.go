package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
	ports "expense-tracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func logger() *log.Logger { return log.ForComponent(log.ComponentSheets) }

// Options configures the Sheets exporter. Either CredentialsJSON or
// CredentialsFile must be set.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.Exporter = (*Exporter)(nil)

// New creates a Sheets exporter authenticated with a service account.
func New(ctx context.Context, opts Options) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		logger().DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger().DebugContext(ctx, "Reading credentials from file", log.FieldPath, serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export replaces the content of the sheet with items, starting at A1.
func (c *Exporter) Export(ctx context.Context, items []core.Expense, includeHeader bool) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:E", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", c.sheetName, err)
	}

	rows := buildRows(items, includeHeader)
	if len(rows) == 0 {
		return fmt.Sprintf("%s!A1", c.sheetName), nil
	}

	ref := fmt.Sprintf("%s!A1:E%d", c.sheetName, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to write sheet %s: %w", c.sheetName, err)
	}

	logger().InfoContext(ctx, "Ledger exported to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"range", ref,
		log.FieldCount, len(items))
	return ref, nil
}

func buildRows(items []core.Expense, includeHeader bool) [][]any {
	rows := make([][]any, 0, len(items)+1)
	if includeHeader {
		header := make([]any, len(ports.Header))
		for i, h := range ports.Header {
			header[i] = h
		}
		rows = append(rows, header)
	}
	for _, e := range items {
		rows = append(rows, []any{e.ID, e.Description, e.Amount, e.Category, e.CreatedAt.String()})
	}
	return rows
}
