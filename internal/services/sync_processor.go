package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/sheets"
	"expenses/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// Interval is how often the whole table is re-mirrored (default: 5m)
	Interval time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		Interval: 5 * time.Minute,
	}
}

// SyncProcessor copies the expenses table into a mirror. Syncs triggered by
// events and by the periodic loop never overlap.
type SyncProcessor struct {
	store  storage.Store
	mirror sheets.Mirror
	config SyncProcessorConfig

	syncMu sync.Mutex

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(store storage.Store, mirror sheets.Mirror, config SyncProcessorConfig) *SyncProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultSyncProcessorConfig().Interval
	}
	return &SyncProcessor{
		store:  store,
		mirror: mirror,
		config: config,
	}
}

// Start begins the periodic loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Heal anything missed while the worker was down
	p.syncLogged(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.syncLogged(ctx)
		}
	}
}

func (p *SyncProcessor) syncLogged(ctx context.Context) {
	if err := p.Sync(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Periodic mirror sync failed",
			log.FieldOperation, log.OpSync,
			log.FieldError, err)
	}
}

// HandleEvent re-mirrors the table after a change. An error makes the
// consumer requeue the event.
func (p *SyncProcessor) HandleEvent(ctx context.Context, event *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		log.FieldOperation, log.OpSync,
		log.FieldEventType, event.Type,
		log.FieldExpenseID, event.ID)

	if err := p.Sync(ctx); err != nil {
		return fmt.Errorf("mirror after %s %d: %w", event.Type, event.ID, err)
	}
	return nil
}

// Sync reads the full table in one session and replaces the mirror with it.
func (p *SyncProcessor) Sync(ctx context.Context) error {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()

	var expenses []core.Expense
	err := p.store.InSession(ctx, func(s storage.Session) error {
		var err error
		expenses, err = s.ListExpenses(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("read expenses: %w", err)
	}

	if err := p.mirror.ReplaceAll(ctx, expenses); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}
	return nil
}
