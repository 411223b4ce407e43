package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the ledger and the budget table in one SQLite file.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

var (
	_ LedgerStore = (*SQLiteRepository)(nil)
	_ BudgetStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadExpenses implements LedgerStore. Rows come back in ledger order.
func (r *SQLiteRepository) LoadExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount, category, created_at FROM expenses ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	items := []core.Expense{}
	for row := 1; rows.Next(); row++ {
		var (
			e         core.Expense
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.Category, &createdAt); err != nil {
			return nil, &CorruptLedgerError{Path: r.path, Line: row, Err: err}
		}
		if e.CreatedAt, err = core.ParseDate(createdAt); err != nil {
			return nil, &CorruptLedgerError{Path: r.path, Line: row, Err: err}
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return items, nil
}

// SaveExpenses implements LedgerStore by replacing every row in one transaction.
func (r *SQLiteRepository) SaveExpenses(ctx context.Context, items []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (id, description, amount, category, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range items {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Description, e.Amount, e.Category, e.CreatedAt.String()); err != nil {
			return fmt.Errorf("insert expense %d: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expenses: %w", err)
	}

	logger().DebugContext(ctx, "Ledger saved to SQLite", log.FieldPath, r.path, log.FieldCount, len(items))
	return nil
}

// AppendExpense implements LedgerStore
func (r *SQLiteRepository) AppendExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Description, e.Amount, e.Category, e.CreatedAt.String())
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	logger().DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"amount", e.Amount,
		"created_at", e.CreatedAt.String())
	return nil
}

// LoadBudgets implements BudgetStore. Query failures fall back to defaults.
func (r *SQLiteRepository) LoadBudgets(ctx context.Context) core.Budgets {
	budgets := core.DefaultBudgets()
	rows, err := r.db.QueryContext(ctx, `SELECT month, amount FROM budgets`)
	if err != nil {
		logger().WarnContext(ctx, "Failed to read budgets, using defaults", "error", err)
		return budgets
	}
	defer rows.Close()

	for rows.Next() {
		var (
			month  int
			amount sql.NullFloat64
		)
		if err := rows.Scan(&month, &amount); err != nil {
			logger().WarnContext(ctx, "Failed to scan budget row, using defaults", "error", err)
			return core.DefaultBudgets()
		}
		if amount.Valid {
			if err := budgets.Set(month, amount.Float64); err != nil {
				logger().WarnContext(ctx, "Invalid budget row, using defaults", "month", month, "error", err)
				return core.DefaultBudgets()
			}
		}
	}
	if err := rows.Err(); err != nil {
		logger().WarnContext(ctx, "Failed to read budgets, using defaults", "error", err)
		return core.DefaultBudgets()
	}
	return budgets
}

// SaveBudgets implements BudgetStore
func (r *SQLiteRepository) SaveBudgets(ctx context.Context, budgets core.Budgets) error {
	if err := budgets.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for m := 1; m <= 12; m++ {
		var amount sql.NullFloat64
		if !math.IsInf(budgets[m], 1) {
			amount = sql.NullFloat64{Float64: budgets[m], Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (month, amount) VALUES (?, ?)
			 ON CONFLICT(month) DO UPDATE SET amount = excluded.amount`, m, amount)
		if err != nil {
			return fmt.Errorf("upsert budget for month %d: %w", m, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budgets: %w", err)
	}
	return nil
}
