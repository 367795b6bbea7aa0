package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kakeibo/internal/log"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
)

// Outbox is the local queue of mutations awaiting replication.
type Outbox interface {
	PendingMutations(ctx context.Context, limit int) ([]storage.OutboxEntry, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error, maxAttempts int) error
	CleanupSynced(ctx context.Context, age time.Duration) (int64, error)
	OutboxStats(ctx context.Context) (storage.OutboxStats, error)
}

// MutationPublisher forwards one queued mutation downstream.
type MutationPublisher interface {
	PublishMutation(ctx context.Context, outboxID int64, m sheets.Mutation) error
}

// DirectPublisher replays mutations straight into a row store, for
// deployments without a broker.
type DirectPublisher struct {
	Store sheets.RowStore
}

func (d DirectPublisher) PublishMutation(ctx context.Context, _ int64, m sheets.Mutation) error {
	return m.Apply(ctx, d.Store)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before an entry is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up synced items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old synced items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// SyncProcessor drains the outbox in order. A batch stops at the first
// failure so later mutations never overtake an earlier one.
type SyncProcessor struct {
	outbox    Outbox
	publisher MutationPublisher
	config    SyncProcessorConfig
	logger    *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(outbox Outbox, publisher MutationPublisher, config SyncProcessorConfig, logger *log.Logger) *SyncProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncProcessor{
		outbox:    outbox,
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for the current batch to finish.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanup(ctx)
		}
	}
}

// ProcessBatch publishes up to BatchSize pending mutations and reports how
// many were delivered.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	entries, err := p.outbox.PendingMutations(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to read outbox", log.FieldError, err)
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	p.logger.DebugContext(ctx, "Processing sync batch", "count", len(entries))

	synced := 0
	for _, e := range entries {
		if p.stopping(ctx) {
			break
		}
		if err := p.publisher.PublishMutation(ctx, e.ID, e.Mutation); err != nil {
			p.handleFailure(ctx, e, err)
			break
		}
		if err := p.outbox.MarkSynced(ctx, e.ID); err != nil {
			// published but not marked; the entry will be sent again
			p.logger.ErrorContext(ctx, "Failed to mark outbox entry synced", "id", e.ID, log.FieldError, err)
			break
		}
		synced++
	}
	return synced
}

func (p *SyncProcessor) stopping(ctx context.Context) bool {
	select {
	case <-p.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (p *SyncProcessor) handleFailure(ctx context.Context, e storage.OutboxEntry, cause error) {
	attempt := e.Attempts + 1
	p.logger.WarnContext(ctx, "Sync publish failed",
		"id", e.ID,
		log.FieldSheet, e.Mutation.Sheet,
		log.FieldOperation, string(e.Mutation.Kind),
		log.FieldAttempt, attempt,
		log.FieldError, cause)

	if err := p.outbox.MarkFailed(ctx, e.ID, cause, p.config.MaxRetries); err != nil {
		p.logger.ErrorContext(ctx, "Failed to record sync failure", "id", e.ID, log.FieldError, err)
		return
	}
	if attempt >= p.config.MaxRetries {
		p.logger.ErrorContext(ctx, "Sync entry failed permanently after max retries",
			"id", e.ID, log.FieldSheet, e.Mutation.Sheet, "attempts", attempt)
	}
}

func (p *SyncProcessor) cleanup(ctx context.Context) {
	n, err := p.outbox.CleanupSynced(ctx, p.config.CleanupAge)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to clean up synced entries", log.FieldError, err)
		return
	}
	if n > 0 {
		p.logger.DebugContext(ctx, "Cleaned up synced entries", "count", n)
	}
}

// Stats returns current queue statistics
func (p *SyncProcessor) Stats(ctx context.Context) (storage.OutboxStats, error) {
	return p.outbox.OutboxStats(ctx)
}
