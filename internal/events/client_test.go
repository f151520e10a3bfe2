package events

import (
	"context"
	"testing"
	"time"
)

func TestNewChangeEvent(t *testing.T) {
	e := NewChangeEvent(EventPaymentProcessed, "pay-1")

	if e.Type != EventPaymentProcessed {
		t.Errorf("NewChangeEvent() Type = %v, want %v", e.Type, EventPaymentProcessed)
	}
	if e.EntityID != "pay-1" {
		t.Errorf("NewChangeEvent() EntityID = %v, want pay-1", e.EntityID)
	}
	if e.Timestamp.IsZero() {
		t.Error("NewChangeEvent() Timestamp should not be zero")
	}
	if time.Since(e.Timestamp) > time.Second {
		t.Error("NewChangeEvent() Timestamp should be recent")
	}
}

func TestChangeEvent_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := &ChangeEvent{
		Type:        EventStatementClosed,
		EntityID:    "st-42",
		Owner:       "ana",
		AmountCents: 23000,
		Timestamp:   timestamp,
	}

	jsonBytes, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ChangeEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ChangeEventFromJSON() error = %v", err)
	}

	if parsed.Type != e.Type {
		t.Errorf("Parsed Type = %v, want %v", parsed.Type, e.Type)
	}
	if parsed.EntityID != e.EntityID {
		t.Errorf("Parsed EntityID = %v, want %v", parsed.EntityID, e.EntityID)
	}
	if parsed.AmountCents != e.AmountCents {
		t.Errorf("Parsed AmountCents = %v, want %v", parsed.AmountCents, e.AmountCents)
	}
	if !parsed.Timestamp.Equal(e.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, e.Timestamp)
	}
}

func TestChangeEvent_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"amount_cents": "not_a_number"}`)

	if _, err := ChangeEventFromJSON(invalidJSON); err == nil {
		t.Error("ChangeEventFromJSON() should fail with invalid JSON")
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client

	if err := c.Publish(context.Background(), NewChangeEvent(EventWalletUpdated, "w1")); err != nil {
		t.Errorf("nil client Publish() error = %v, want nil", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("nil client Close() error = %v, want nil", err)
	}
}
