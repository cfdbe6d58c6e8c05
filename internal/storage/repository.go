package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expenses/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLRepository is a Store backed by database/sql.
type SQLRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Store = (*SQLRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the SQLite file at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	repo, err := open(DialectSQLite, sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between sessions.
	repo.db.SetMaxOpenConns(1)
	return repo, nil
}

// NewPostgresRepository connects to the Postgres database at databaseURL.
func NewPostgresRepository(databaseURL string) (*SQLRepository, error) {
	if databaseURL == "" {
		return nil, errors.New("empty postgres database URL")
	}
	return open(DialectPostgres, databaseURL)
}

func sqliteDSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func open(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		queries: New(db, dialect),
	}, nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InSession runs fn inside a transaction. The transaction is committed when
// fn returns nil and rolled back on error or panic.
func (r *SQLRepository) InSession(ctx context.Context, fn func(Session) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Session rollback failed", "error", rbErr, "cause", err)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit session: %w", cErr)
		}
	}()

	return fn(&sqlSession{q: r.queries.WithTx(tx)})
}

type sqlSession struct {
	q *Queries
}

func (s *sqlSession) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.q.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = row.toCore()
	}
	return expenses, nil
}

func (s *sqlSession) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row, err := s.q.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, notFound(err))
	}
	return row.toCore(), nil
}

func (s *sqlSession) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	row, err := s.q.CreateExpense(ctx, CreateExpenseParams{
		Title:    in.Title,
		Amount:   in.Amount,
		Category: in.Category,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense inserted",
		"id", row.ID,
		"title", row.Title,
		"amount", row.Amount,
		"category", row.Category)

	return row.toCore(), nil
}

func (s *sqlSession) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	row, err := s.q.UpdateExpense(ctx, UpdateExpenseParams{
		Title:    in.Title,
		Amount:   in.Amount,
		Category: in.Category,
		ID:       id,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, notFound(err))
	}
	return row.toCore(), nil
}

func (s *sqlSession) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := s.q.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, notFound(err))
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func (row ExpenseRow) toCore() core.Expense {
	return core.Expense{
		ID:       row.ID,
		Title:    row.Title,
		Amount:   row.Amount,
		Category: row.Category,
	}
}
