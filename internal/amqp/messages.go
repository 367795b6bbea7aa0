package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/sheets"
)

// SyncMessage carries one row-store mutation to the replication worker.
// OutboxID is the sender's sequence number; ID is unique per publish.
type SyncMessage struct {
	ID        string          `json:"id"`
	OutboxID  int64           `json:"outbox_id"`
	Mutation  sheets.Mutation `json:"mutation"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewSyncMessage(outboxID int64, m sheets.Mutation) *SyncMessage {
	return &SyncMessage{
		ID:        uuid.NewString(),
		OutboxID:  outboxID,
		Mutation:  m,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON decodes and validates a message body.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	if err := msg.Mutation.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
