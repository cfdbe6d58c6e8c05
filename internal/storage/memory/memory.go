package memory

import (
	"context"
	"fmt"
	"sync"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// Store keeps expenses in process memory. Sessions are serialized and a
// failed session leaves the data untouched.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Expense
}

var _ storage.Store = (*Store)(nil)

func New(seed ...core.ExpenseInput) *Store {
	s := &Store{nextID: 1}
	for _, in := range seed {
		s.items = append(s.items, in.Apply(core.Expense{ID: s.nextID}))
		s.nextID++
	}
	return s
}

func (s *Store) InSession(ctx context.Context, fn func(storage.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin session: %w", err)
	}

	sess := &session{
		nextID: s.nextID,
		items:  append([]core.Expense(nil), s.items...),
	}
	if err := fn(sess); err != nil {
		return err
	}
	s.nextID = sess.nextID
	s.items = sess.items
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// session works on a private copy which InSession publishes on success.
type session struct {
	nextID int64
	items  []core.Expense
}

func (s *session) ListExpenses(_ context.Context) ([]core.Expense, error) {
	return append(make([]core.Expense, 0, len(s.items)), s.items...), nil
}

func (s *session) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
	}
	return s.items[i], nil
}

func (s *session) CreateExpense(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	e := in.Apply(core.Expense{ID: s.nextID})
	s.nextID++
	s.items = append(s.items, e)
	return e, nil
}

func (s *session) UpdateExpense(_ context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, core.ErrNotFound)
	}
	s.items[i] = in.Apply(s.items[i])
	return s.items[i], nil
}

func (s *session) DeleteExpense(_ context.Context, id int64) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *session) indexOf(id int64) int {
	for i, e := range s.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}
