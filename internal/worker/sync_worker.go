// Package worker applies replicated row-store mutations to a target store,
// normally the Google spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kakeibo/internal/amqp"
	"kakeibo/internal/log"
	"kakeibo/internal/sheets"
)

// SyncWorker replays SyncMessages in delivery order. Redelivered messages
// whose outbox id was already applied are acknowledged without effect.
type SyncWorker struct {
	target sheets.RowStore
	logger *log.Logger

	mu          sync.Mutex
	lastApplied int64
	applied     int64
}

func NewSyncWorker(target sheets.RowStore, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{target: target, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleSyncMessage is an amqp.Handler. A returned error requeues the
// message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	m := msg.Mutation
	if msg.OutboxID > 0 && msg.OutboxID <= w.lastApplied {
		w.logger.InfoContext(ctx, "Skipping already applied mutation",
			log.FieldMessageID, msg.ID, "outbox_id", msg.OutboxID)
		return nil
	}

	if err := m.Apply(ctx, w.target); err != nil {
		if errors.Is(err, sheets.ErrOutOfRange) {
			// the replica has diverged; requeueing would loop forever
			return fmt.Errorf("%w: apply %s to %s: %w", amqp.ErrPermanent, m.Kind, m.Sheet, err)
		}
		return fmt.Errorf("apply %s to %s: %w", m.Kind, m.Sheet, err)
	}
	if msg.OutboxID > 0 {
		w.lastApplied = msg.OutboxID
	}
	w.applied++

	w.logger.InfoContext(ctx, "Applied mutation",
		log.FieldMessageID, msg.ID,
		"outbox_id", msg.OutboxID,
		log.FieldSheet, m.Sheet,
		log.FieldOperation, string(m.Kind),
		log.FieldRows, len(m.Rows))
	return nil
}

// Applied returns how many mutations were applied since start.
func (w *SyncWorker) Applied() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applied
}
