// Package ledger owns the order and member collections.
//
// Both collections are persisted as whole JSON documents. Every mutation
// builds the next collection as a copy, writes it, and only then swaps it in,
// so the in-memory state always equals the last successful write. The mutex
// is held across the store call: two writes never interleave.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"tiffin/internal/core"
	"tiffin/internal/storage"
)

// ErrDateTaken is returned by Create when the date already has an order.
var ErrDateTaken = errors.New("date already has an order")

// DateTakenError carries the order that occupies the date.
type DateTakenError struct {
	Existing core.TiffinOrder
}

func (e *DateTakenError) Error() string {
	return fmt.Sprintf("%s: %v", e.Existing.Date, ErrDateTaken)
}

func (e *DateTakenError) Unwrap() error { return ErrDateTaken }

// Ledger holds at most one order per date.
type Ledger struct {
	mu     sync.Mutex
	store  storage.Store
	newID  IDGenerator
	orders []core.TiffinOrder
}

func New(store storage.Store, newID IDGenerator) *Ledger {
	return &Ledger{store: store, newID: orDefault(newID)}
}

// Load replaces the in-memory orders with the stored ones. On failure the
// current state is kept.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var orders []core.TiffinOrder
	if err := load(ctx, l.store, storage.KeyOrders, &orders); err != nil {
		return err
	}
	if orders == nil {
		orders = []core.TiffinOrder{}
	}
	l.orders = orders

	slog.InfoContext(ctx, "Orders loaded", "count", len(orders))
	return nil
}

// FindByDate returns the order recorded for date, if any.
func (l *Ledger) FindByDate(date string) (core.TiffinOrder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexOfDate(normalize(date)); i >= 0 {
		return l.orders[i].Clone(), true
	}
	return core.TiffinOrder{}, false
}

// Upsert stores order under its date. An existing order for that date is
// replaced in place and keeps its id; otherwise the order is appended with a
// fresh id. updated reports which of the two happened.
func (l *Ledger) Upsert(ctx context.Context, order core.TiffinOrder) (saved core.TiffinOrder, updated bool, err error) {
	return l.put(ctx, order, true)
}

// Create stores order only if its date is free. Otherwise it returns a
// *DateTakenError holding the existing order and leaves the ledger as is.
func (l *Ledger) Create(ctx context.Context, order core.TiffinOrder) (core.TiffinOrder, error) {
	saved, _, err := l.put(ctx, order, false)
	return saved, err
}

func (l *Ledger) put(ctx context.Context, order core.TiffinOrder, replace bool) (saved core.TiffinOrder, updated bool, err error) {
	order, err = core.NewTiffinOrder(order.Params())
	if err != nil {
		return core.TiffinOrder{}, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOfDate(order.Date)
	if i >= 0 && !replace {
		return core.TiffinOrder{}, false, &DateTakenError{Existing: l.orders[i].Clone()}
	}

	next := make([]core.TiffinOrder, len(l.orders), len(l.orders)+1)
	copy(next, l.orders)

	if i >= 0 {
		order.ID = l.orders[i].ID
		next[i] = order
		updated = true
	} else {
		order.ID = l.newID()
		next = append(next, order)
	}

	if err := save(ctx, l.store, storage.KeyOrders, next); err != nil {
		return core.TiffinOrder{}, false, err
	}
	l.orders = next

	slog.InfoContext(ctx, "Order saved", "id", order.ID, "date", order.Date, "updated", updated)
	return order.Clone(), updated, nil
}

// DeleteByID removes the order with id. An unknown id is a no-op and does
// not touch the store.
func (l *Ledger) DeleteByID(ctx context.Context, id string) (removed core.TiffinOrder, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, o := range l.orders {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.TiffinOrder{}, false, nil
	}

	next := make([]core.TiffinOrder, 0, len(l.orders)-1)
	next = append(next, l.orders[:idx]...)
	next = append(next, l.orders[idx+1:]...)

	if err := save(ctx, l.store, storage.KeyOrders, next); err != nil {
		return core.TiffinOrder{}, false, err
	}
	removed = l.orders[idx]
	l.orders = next

	slog.InfoContext(ctx, "Order deleted", "id", id, "date", removed.Date)
	return removed.Clone(), true, nil
}

// ListAll returns a copy of every order in ledger order.
func (l *Ledger) ListAll() []core.TiffinOrder {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.TiffinOrder, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.Clone()
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

func (l *Ledger) indexOfDate(date string) int {
	for i, o := range l.orders {
		if o.Date == date {
			return i
		}
	}
	return -1
}

// normalize falls back to the raw text so legacy dates can still be found.
func normalize(date string) string {
	if d, err := core.NormalizeDate(date); err == nil {
		return d
	}
	return strings.TrimSpace(date)
}
