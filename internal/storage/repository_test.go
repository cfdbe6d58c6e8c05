package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

func newSQLite(t *testing.T) storage.Store {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func stores(t *testing.T) map[string]storage.Store {
	return map[string]storage.Store{
		"sqlite": newSQLite(t),
		"memory": memory.New(),
	}
}

func list(t *testing.T, st storage.Store) []core.Expense {
	t.Helper()
	var out []core.Expense
	err := st.InSession(context.Background(), func(s storage.Session) error {
		var err error
		out, err = s.ListExpenses(context.Background())
		return err
	})
	require.NoError(t, err)
	return out
}

func TestStoreCRUD(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			assert.Empty(t, list(t, st))
			assert.NotNil(t, list(t, st))

			var created core.Expense
			err := st.InSession(ctx, func(s storage.Session) error {
				var err error
				created, err = s.CreateExpense(ctx, core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"})
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, core.Expense{ID: 1, Title: "Coffee", Amount: 5, Category: "Food"}, created)

			err = st.InSession(ctx, func(s storage.Session) error {
				got, err := s.GetExpense(ctx, created.ID)
				require.NoError(t, err)
				assert.Equal(t, created, got)

				updated, err := s.UpdateExpense(ctx, created.ID, core.ExpenseInput{Title: "Tea", Amount: 4, Category: "Drinks"})
				require.NoError(t, err)
				assert.Equal(t, core.Expense{ID: 1, Title: "Tea", Amount: 4, Category: "Drinks"}, updated)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []core.Expense{{ID: 1, Title: "Tea", Amount: 4, Category: "Drinks"}}, list(t, st))

			err = st.InSession(ctx, func(s storage.Session) error {
				return s.DeleteExpense(ctx, created.ID)
			})
			require.NoError(t, err)
			assert.Empty(t, list(t, st))
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := st.InSession(ctx, func(s storage.Session) error {
				_, err := s.GetExpense(ctx, 42)
				assert.ErrorIs(t, err, core.ErrNotFound)

				_, err = s.UpdateExpense(ctx, 42, core.ExpenseInput{Title: "x", Amount: 1, Category: "y"})
				assert.ErrorIs(t, err, core.ErrNotFound)

				assert.ErrorIs(t, s.DeleteExpense(ctx, 42), core.ErrNotFound)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestStoreRollbackOnError(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := errors.New("boom")

			err := st.InSession(ctx, func(s storage.Session) error {
				_, err := s.CreateExpense(ctx, core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"})
				require.NoError(t, err)
				return boom
			})
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, list(t, st))
		})
	}
}

func TestStoreRollbackOnPanic(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			assert.Panics(t, func() {
				_ = st.InSession(ctx, func(s storage.Session) error {
					_, _ = s.CreateExpense(ctx, core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"})
					panic("handler exploded")
				})
			})

			// The session was released: the store is usable and unchanged.
			assert.Empty(t, list(t, st))
		})
	}
}

func TestStoreIDsAreNotReused(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			create := func(title string) core.Expense {
				var e core.Expense
				require.NoError(t, st.InSession(ctx, func(s storage.Session) error {
					var err error
					e, err = s.CreateExpense(ctx, core.ExpenseInput{Title: title, Amount: 1, Category: "c"})
					return err
				}))
				return e
			}

			first := create("a")
			second := create("b")
			require.NoError(t, st.InSession(ctx, func(s storage.Session) error {
				return s.DeleteExpense(ctx, second.ID)
			}))
			third := create("c")

			assert.Equal(t, int64(1), first.ID)
			assert.Equal(t, int64(2), second.ID)
			assert.Equal(t, int64(3), third.ID)
		})
	}
}

func TestSQLiteSchemaSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.InSession(ctx, func(s storage.Session) error {
		_, err := s.CreateExpense(ctx, core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"})
		return err
	}))
	require.NoError(t, repo.Close())

	reopened, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.NoError(t, reopened.Ping(ctx))
	assert.Len(t, list(t, reopened), 1)
}

func TestSessionHonoursCancelledContext(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			called := false
			err := st.InSession(ctx, func(storage.Session) error {
				called = true
				return nil
			})
			assert.ErrorIs(t, err, context.Canceled)
			assert.False(t, called)
		})
	}
}
