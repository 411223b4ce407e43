package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
)

func logger() *log.Logger { return log.ForComponent(log.ComponentStorage) }

// Columns of the ledger file, in order.
var ledgerHeader = []string{"id", "description", "amount", "category", "createdAt"}

// ErrNotADirectory is returned when a path that must be a directory is a file.
var ErrNotADirectory = errors.New("not a directory")

// CorruptLedgerError reports a ledger row that cannot be decoded. The whole
// read is abandoned; there is no partial result.
type CorruptLedgerError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptLedgerError) Error() string {
	return fmt.Sprintf("failed to read CSV file: file %s, line %d: %v", e.Path, e.Line, e.Err)
}

func (e *CorruptLedgerError) Unwrap() error { return e.Err }

// CSVLedger is a LedgerStore backed by one CSV file without a header row.
type CSVLedger struct {
	path string
}

var _ LedgerStore = (*CSVLedger)(nil)

func NewCSVLedger(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

// Path returns the ledger file location.
func (l *CSVLedger) Path() string { return l.path }

func (l *CSVLedger) LoadExpenses(ctx context.Context) ([]core.Expense, error) {
	items, err := LoadExpenses(l.path)
	if err != nil {
		return nil, err
	}
	logger().DebugContext(ctx, "Ledger loaded", log.FieldPath, l.path, log.FieldCount, len(items))
	return items, nil
}

func (l *CSVLedger) SaveExpenses(ctx context.Context, items []core.Expense) error {
	if err := SaveExpenses(l.path, items, false); err != nil {
		return err
	}
	logger().DebugContext(ctx, "Ledger saved", log.FieldPath, l.path, log.FieldCount, len(items))
	return nil
}

func (l *CSVLedger) AppendExpense(ctx context.Context, e core.Expense) error {
	if err := AppendExpense(l.path, e); err != nil {
		return err
	}
	logger().DebugContext(ctx, "Expense appended to ledger", log.FieldPath, l.path, "id", e.ID)
	return nil
}

// LoadExpenses reads every row of the ledger file. A missing file is an empty
// ledger. An optional header row is skipped.
func LoadExpenses(path string) ([]core.Expense, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []core.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	return readExpenses(path, f)
}

func readExpenses(path string, r io.Reader) ([]core.Expense, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	items := []core.Expense{}
	for first := true; ; first = false {
		record, err := cr.Read()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &CorruptLedgerError{Path: path, Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)
		if first && isHeader(record) {
			continue
		}
		e, err := parseRecord(record)
		if err != nil {
			return nil, &CorruptLedgerError{Path: path, Line: line, Err: err}
		}
		items = append(items, e)
	}
}

func isHeader(record []string) bool {
	if len(record) != len(ledgerHeader) {
		return false
	}
	for i, name := range ledgerHeader {
		if record[i] == name {
			continue
		}
		// Older files spell the date column create_at.
		if i == 4 && record[i] == "create_at" {
			continue
		}
		return false
	}
	return true
}

func parseRecord(record []string) (core.Expense, error) {
	if len(record) != len(ledgerHeader) {
		return core.Expense{}, fmt.Errorf("expected %d fields, got %d", len(ledgerHeader), len(record))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil || id < 1 {
		return core.Expense{}, fmt.Errorf("invalid id %q", record[0])
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil || core.ValidateAmount(amount) != nil {
		return core.Expense{}, fmt.Errorf("invalid amount %q", record[2])
	}
	date, err := core.ParseDate(record[4])
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          id,
		Description: record[1],
		Amount:      amount,
		Category:    record[3],
		CreatedAt:   date,
	}, nil
}

func formatRecord(e core.Expense) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Description,
		core.FormatAmount(e.Amount),
		e.Category,
		e.CreatedAt.String(),
	}
}

// writeQuoted writes one CSV row with every field quoted. encoding/csv only
// quotes when a field needs it.
func writeQuoted(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// checkStorable rejects records whose text would not read back unchanged.
func checkStorable(items ...core.Expense) error {
	for _, e := range items {
		if err := core.ValidateText(e.Description, e.Category); err != nil {
			return fmt.Errorf("expense %d: %w", e.ID, err)
		}
	}
	return nil
}

// SaveExpenses overwrites path with items, optionally preceded by a header row.
func SaveExpenses(path string, items []core.Expense, includeHeader bool) error {
	if err := checkStorable(items...); err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	w := bufio.NewWriter(f)
	if includeHeader {
		writeQuoted(w, ledgerHeader)
	}
	for _, e := range items {
		writeQuoted(w, formatRecord(e))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// AppendExpense writes one row at the end of path, creating the file if needed.
func AppendExpense(path string, e core.Expense) error {
	if err := checkStorable(e); err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	w := bufio.NewWriter(f)
	writeQuoted(w, formatRecord(e))
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("append to ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// EnsureDir creates dir and its parents when missing. It fails with
// ErrNotADirectory when dir, or one of its parents, is a regular file.
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", dir, ErrNotADirectory)
		}
		return nil
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%s: %w", dir, ErrNotADirectory)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			return fmt.Errorf("%s: %w", dir, ErrNotADirectory)
		}
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
