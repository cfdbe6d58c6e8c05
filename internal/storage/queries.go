package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// ExpenseRow mirrors the expenses table.
type ExpenseRow struct {
	ID       int64
	Title    string
	Amount   int64
	Category string
}

const listExpenses = `-- name: ListExpenses :many
SELECT id, title, amount, category FROM expenses ORDER BY id
`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listExpenses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ExpenseRow{}
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(&i.ID, &i.Title, &i.Amount, &i.Category); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getExpense = `-- name: GetExpense :one
SELECT id, title, amount, category FROM expenses WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id int64) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(getExpense), id)
	var i ExpenseRow
	err := row.Scan(&i.ID, &i.Title, &i.Amount, &i.Category)
	return i, err
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (title, amount, category)
VALUES (?, ?, ?)
RETURNING id, title, amount, category
`

type CreateExpenseParams struct {
	Title    string
	Amount   int64
	Category string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(createExpense), arg.Title, arg.Amount, arg.Category)
	var i ExpenseRow
	err := row.Scan(&i.ID, &i.Title, &i.Amount, &i.Category)
	return i, err
}

const updateExpense = `-- name: UpdateExpense :one
UPDATE expenses SET title = ?, amount = ?, category = ?
WHERE id = ?
RETURNING id, title, amount, category
`

type UpdateExpenseParams struct {
	Title    string
	Amount   int64
	Category string
	ID       int64
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(updateExpense), arg.Title, arg.Amount, arg.Category, arg.ID)
	var i ExpenseRow
	err := row.Scan(&i.ID, &i.Title, &i.Amount, &i.Category)
	return i, err
}

const deleteExpense = `-- name: DeleteExpense :one
DELETE FROM expenses WHERE id = ?
RETURNING id
`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(deleteExpense), id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}
