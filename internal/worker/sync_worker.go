package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/services"
)

const stopTimeout = 10 * time.Second

// EventConsumer is satisfied by *amqp.Client.
type EventConsumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SyncWorker keeps the sheet mirror current: every consumed event triggers a
// sync, and the processor's periodic loop heals anything that was missed.
type SyncWorker struct {
	consumer  EventConsumer
	processor *services.SyncProcessor
}

// NewSyncWorker wires the worker. consumer may be nil, in which case only
// the periodic resync runs.
func NewSyncWorker(consumer EventConsumer, processor *services.SyncProcessor) *SyncWorker {
	return &SyncWorker{
		consumer:  consumer,
		processor: processor,
	}
}

// Run blocks until ctx is cancelled or the consumer fails for good.
func (w *SyncWorker) Run(ctx context.Context) error {
	if err := w.processor.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := w.processor.Stop(stopCtx); err != nil {
			slog.WarnContext(ctx, "Sync processor did not stop cleanly", "error", err)
		}
	}()

	if w.consumer == nil {
		slog.WarnContext(ctx, "AMQP not configured, mirroring on the periodic schedule only")
		<-ctx.Done()
		return nil
	}

	err := w.consumer.Consume(ctx, w.processor.HandleEvent)
	if ctx.Err() != nil && (err == nil || errors.Is(err, ctx.Err())) {
		return nil
	}
	return err
}
