package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/core"
)

// Event names published for committed transaction changes.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
)

// TransactionEvent is a lightweight change notification. Consumers that need
// the full record fetch it by ID.
type TransactionEvent struct {
	Event       string               `json:"event"`
	ID          string               `json:"id"`
	Type        core.TransactionType `json:"type"`
	AmountCents int64                `json:"amountCents"`
	Timestamp   time.Time            `json:"timestamp"`
}

func NewTransactionEvent(event string, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Event:       event,
		ID:          t.ID,
		Type:        t.Type,
		AmountCents: t.Amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
