package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"tiffin/internal/core"
)

// LedgerEventMessage announces a committed change to orders or members.
// The worker rebuilds the affected month from the store, so the message
// only carries identifiers.
type LedgerEventMessage struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	Date      string    `json:"date,omitempty"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds a message for event, stamping the month it affects.
func NewLedgerEventMessage(event core.LedgerEvent) *LedgerEventMessage {
	m := event.Month()
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	return &LedgerEventMessage{
		Entity:    event.Entity,
		Action:    event.Action,
		ID:        event.ID,
		Date:      event.Date,
		Year:      m.Year,
		Month:     int(m.Month),
		Timestamp: at,
	}
}

// AffectedMonth returns the month to resync.
func (m *LedgerEventMessage) AffectedMonth() core.Month {
	if m.Year > 0 && m.Month >= 1 && m.Month <= 12 {
		return core.Month{Year: m.Year, Month: time.Month(m.Month)}
	}
	return core.LedgerEvent{Date: m.Date, At: m.Timestamp}.Month()
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message and checks it names an entity.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" {
		return nil, fmt.Errorf("ledger event without entity")
	}
	return &msg, nil
}
