package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// countingStore records how many sessions were opened.
type countingStore struct {
	storage.Store
	sessions int
}

func (c *countingStore) InSession(ctx context.Context, fn func(storage.Session) error) error {
	c.sessions++
	return c.Store.InSession(ctx, fn)
}

func TestExpenseServiceScenario(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewExpenseService(memory.New(), pub)

	created, err := svc.Create(ctx, core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, core.Expense{ID: 1, Title: "Coffee", Amount: 5, Category: "Food"}, created)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Expense{created}, list)

	updated, err := svc.Update(ctx, 1, core.ExpenseInput{Title: "Tea", Amount: 4, Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, core.Expense{ID: 1, Title: "Tea", Amount: 4, Category: "Food"}, updated)

	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, svc.Delete(ctx, 1))

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	assert.Equal(t, []amqp.EventType{
		amqp.EventExpenseCreated,
		amqp.EventExpenseUpdated,
		amqp.EventExpenseDeleted,
	}, pub.types())
	assert.Equal(t, "Tea", pub.events[1].Expense.Title)
	assert.Nil(t, pub.events[2].Expense)
}

func TestExpenseServiceValidationSkipsStorage(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, pub)

	_, err := svc.Create(context.Background(), core.ExpenseInput{Title: "", Amount: 5, Category: "Food"})
	require.Error(t, err)

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 1)

	_, err = svc.Update(context.Background(), 1, core.ExpenseInput{Category: "Food"})
	assert.True(t, core.IsValidationError(err))

	assert.Zero(t, store.sessions)
	assert.Empty(t, pub.types())
}

func TestExpenseServiceNotFound(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewExpenseService(memory.New(), pub)

	_, err := svc.Get(ctx, 99)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Update(ctx, 99, core.ExpenseInput{Title: "x", Amount: 1, Category: "y"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, 99), core.ErrNotFound)
	assert.Empty(t, pub.types())

	// still serving
	_, err = svc.Create(ctx, core.ExpenseInput{Title: "x", Amount: 1, Category: "y"})
	assert.NoError(t, err)
}

func TestExpenseServiceOneSessionPerOperation(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.New()}
	svc := NewExpenseService(store, nil)

	_, err := svc.Create(ctx, core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, 1, core.ExpenseInput{Title: "Tea", Amount: 4, Category: "Food"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 1))

	assert.Equal(t, 3, store.sessions)
}

func TestExpenseServicePublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	svc := NewExpenseService(memory.New(), pub)

	created, err := svc.Create(ctx, core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExpenseServiceSummary(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(memory.New(
		core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"},
		core.ExpenseInput{Title: "Rent", Amount: 900, Category: "Home"},
		core.ExpenseInput{Title: "Lunch", Amount: 12, Category: "Food"},
	), nil)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, int64(917), sum.Total)
	require.Len(t, sum.ByCategory, 2)
	assert.Equal(t, "Home", sum.ByCategory[0].Name)
	assert.Equal(t, int64(17), sum.ByCategory[1].Amount)
}

func TestExpenseServiceStorageErrorIsWrapped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewExpenseService(memory.New(), nil)
	_, err := svc.List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "list expenses")
	assert.NoError(t, svc.Ping(context.Background()))
}
