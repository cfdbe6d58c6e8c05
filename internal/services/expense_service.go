package services

import (
	"context"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, event *amqp.ExpenseEvent) error
}

// ExpenseService runs one storage session per operation and announces
// committed writes to an optional publisher.
type ExpenseService struct {
	store     storage.Store
	publisher EventPublisher
	logger    *log.StructuredLogger
}

// NewExpenseService wires the service. publisher may be nil.
func NewExpenseService(store storage.Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    log.NewStructuredLogger(log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentExpense})),
	}
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	err := s.store.InSession(ctx, func(sess storage.Session) error {
		var err error
		out, err = sess.ListExpenses(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	var out core.Expense
	err := s.store.InSession(ctx, func(sess storage.Session) error {
		var err error
		out, err = sess.GetExpense(ctx, id)
		return err
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return out, nil
}

// Create validates in before touching storage.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	var out core.Expense
	err := s.store.InSession(ctx, func(sess storage.Session) error {
		var err error
		out, err = sess.CreateExpense(ctx, in)
		return err
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.logger.LogExpenseChange(ctx, log.OpCreate, out)
	s.publish(ctx, amqp.EventExpenseCreated, out.ID, &out)
	return out, nil
}

// Update overwrites every field of an existing expense.
func (s *ExpenseService) Update(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	var out core.Expense
	err := s.store.InSession(ctx, func(sess storage.Session) error {
		var err error
		out, err = sess.UpdateExpense(ctx, id, in)
		return err
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.LogExpenseChange(ctx, log.OpUpdate, out)
	s.publish(ctx, amqp.EventExpenseUpdated, out.ID, &out)
	return out, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	err := s.store.InSession(ctx, func(sess storage.Session) error {
		return sess.DeleteExpense(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.LogExpenseDeleted(ctx, id)
	s.publish(ctx, amqp.EventExpenseDeleted, id, nil)
	return nil
}

// Summary aggregates the whole table.
func (s *ExpenseService) Summary(ctx context.Context) (core.Summary, error) {
	expenses, err := s.List(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(expenses), nil
}

// Ping reports whether the store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish never fails the caller: the write is already committed.
func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, id int64, e *core.Expense) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, amqp.NewExpenseEvent(t, id, e)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, t,
			log.FieldExpenseID, id,
			log.FieldError, err)
	}
}
