package storage

import (
	"context"

	"expenses/internal/core"
)

// Ports for the persistence layer.
type (
	// Session is a request-scoped unit of work. It is only valid inside the
	// callback passed to Store.InSession.
	Session interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		// GetExpense returns core.ErrNotFound when the id does not exist.
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
		// UpdateExpense overwrites all fields; core.ErrNotFound when absent.
		UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error)
		// DeleteExpense hard-deletes the row; core.ErrNotFound when absent.
		DeleteExpense(ctx context.Context, id int64) error
	}

	// Store hands out sessions. InSession commits when fn returns nil and
	// rolls back otherwise, including when fn panics.
	Store interface {
		InSession(ctx context.Context, fn func(Session) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
