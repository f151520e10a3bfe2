package events

import (
	"encoding/json"
	"time"
)

// Event types published to the change feed.
const (
	EventWalletUpdated    = "wallet_updated"
	EventStatementClosed  = "statement_closed"
	EventPaymentProcessed = "payment_processed"
	EventBalanceRepaired  = "balance_repaired"
)

// ChangeEvent is a lightweight change notification. It carries only the
// entity reference; consumers fetch the full record from the store.
type ChangeEvent struct {
	Type        string    `json:"type"`
	EntityID    string    `json:"entity_id"`
	Owner       string    `json:"owner,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewChangeEvent(eventType, entityID string) *ChangeEvent {
	return &ChangeEvent{
		Type:      eventType,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
