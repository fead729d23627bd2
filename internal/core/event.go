package core

import "time"

const (
	EntityOrder  = "order"
	EntityMember = "member"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// LedgerEvent describes a committed change to the orders or members list.
type LedgerEvent struct {
	Entity string
	Action string
	ID     string
	Date   string // order date, empty for member events
	At     time.Time
}

func NewLedgerEvent(entity, action, id, date string) LedgerEvent {
	return LedgerEvent{Entity: entity, Action: action, ID: id, Date: date, At: time.Now()}
}

// Month returns the month whose summary the event affects. Member events
// and undated orders fall back to the month the event happened in.
func (e LedgerEvent) Month() Month {
	if t, err := time.Parse(DateLayout, e.Date); err == nil {
		return MonthOf(t)
	}
	if e.At.IsZero() {
		return MonthOf(time.Now())
	}
	return MonthOf(e.At)
}
