package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tiffin/internal/core"
	"tiffin/internal/ledger"
	"tiffin/internal/metrics"
	"tiffin/internal/split"
	"tiffin/internal/stats"
)

// ErrOrderExists is returned by SaveOrder when the date already has an order
// and the draft does not ask to overwrite it.
var ErrOrderExists = errors.New("an order already exists for this date")

// ExistsError carries the order that blocked a save.
type ExistsError struct {
	Existing core.TiffinOrder
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("order for %s: %v", e.Existing.Date, ErrOrderExists)
}

func (e *ExistsError) Unwrap() error { return ErrOrderExists }

// Notifier receives committed ledger changes.
type Notifier interface {
	Notify(ctx context.Context, event core.LedgerEvent) error
}

type namedNotifier struct {
	name string
	Notifier
}

// OrderDraft is what the entry form submits. Quantities missing for a member
// default to one; values below one are clamped.
type OrderDraft struct {
	Date        string         `json:"date"`
	Members     []string       `json:"members"`
	Quantities  map[string]int `json:"quantities"`
	Notes       string         `json:"notes"`
	TotalAmount string         `json:"totalAmount"`
	Overwrite   bool           `json:"overwrite"`
}

type SaveResult struct {
	Order   core.TiffinOrder `json:"order"`
	Updated bool             `json:"updated"`
}

// OrderService orchestrates ledger and roster mutations and fans out change
// notifications.
type OrderService struct {
	ledger    *ledger.Ledger
	roster    *ledger.Roster
	metrics   *metrics.Metrics
	notifiers []namedNotifier
}

func NewOrderService(l *ledger.Ledger, r *ledger.Roster, m *metrics.Metrics) *OrderService {
	return &OrderService{ledger: l, roster: r, metrics: m}
}

// AddNotifier registers n under name. Not safe to call once requests are served.
func (s *OrderService) AddNotifier(name string, n Notifier) {
	s.notifiers = append(s.notifiers, namedNotifier{name: name, Notifier: n})
}

// Load reads orders and members concurrently.
func (s *OrderService) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.ledger.Load(gctx) })
	g.Go(func() error { return s.roster.Load(gctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	s.refreshCounts()
	return nil
}

// SaveOrder validates draft and creates or replaces the order for its date.
func (s *OrderService) SaveOrder(ctx context.Context, draft OrderDraft) (SaveResult, error) {
	order, err := draftToOrder(draft)
	if err != nil {
		s.metrics.ObserveOp("save", metrics.ResultInvalid)
		return SaveResult{}, err
	}

	var (
		saved   core.TiffinOrder
		updated bool
	)
	if draft.Overwrite {
		saved, updated, err = s.ledger.Upsert(ctx, order)
	} else {
		saved, err = s.ledger.Create(ctx, order)
	}
	var taken *ledger.DateTakenError
	if errors.As(err, &taken) {
		s.metrics.ObserveOp("save", metrics.ResultInvalid)
		return SaveResult{}, &ExistsError{Existing: taken.Existing}
	}
	if err != nil {
		s.metrics.ObserveOp("save", resultOf(err))
		return SaveResult{}, fmt.Errorf("save order: %w", err)
	}
	s.metrics.ObserveOp("save", metrics.ResultOK)
	s.refreshCounts()

	action := core.ActionCreated
	if updated {
		action = core.ActionUpdated
	}
	s.notify(ctx, core.NewLedgerEvent(core.EntityOrder, action, saved.ID, saved.Date))

	return SaveResult{Order: saved, Updated: updated}, nil
}

func draftToOrder(draft OrderDraft) (core.TiffinOrder, error) {
	members := make([]string, 0, len(draft.Members))
	seen := make(map[string]struct{}, len(draft.Members))
	for _, id := range draft.Members {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	quantities := make([]core.MemberQuantity, len(members))
	values := make([]int, len(members))
	for i, id := range members {
		q, ok := draft.Quantities[id]
		if !ok {
			q = 1
		}
		q = core.ClampQuantity(q)
		quantities[i] = core.MemberQuantity{MemberID: id, Quantity: q}
		values[i] = q
	}

	// Text that is not a usable amount counts as no amount entered.
	var total *float64
	if v, ok := core.ParseAmount(draft.TotalAmount); ok {
		total = &v
	}

	return core.NewTiffinOrder(core.OrderParams{
		Date:             draft.Date,
		Members:          members,
		MemberQuantities: quantities,
		Notes:            strings.TrimSpace(draft.Notes),
		TotalAmount:      total,
		PerPersonAmount:  split.PerPersonAtSave(total, values),
	})
}

// DeleteOrder removes the order with id. Unknown ids are not an error.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	removed, ok, err := s.ledger.DeleteByID(ctx, id)
	if err != nil {
		s.metrics.ObserveOp("delete", resultOf(err))
		return fmt.Errorf("delete order: %w", err)
	}
	s.metrics.ObserveOp("delete", metrics.ResultOK)
	if !ok {
		return nil
	}
	s.refreshCounts()
	s.notify(ctx, core.NewLedgerEvent(core.EntityOrder, core.ActionDeleted, removed.ID, removed.Date))
	return nil
}

func (s *OrderService) FindOrder(date string) (core.TiffinOrder, bool) {
	return s.ledger.FindByDate(date)
}

// ListOrders returns every order in ledger order.
func (s *OrderService) ListOrders() []core.TiffinOrder {
	return s.ledger.ListAll()
}

// OrdersInMonth returns the month's orders, newest first.
func (s *OrderService) OrdersInMonth(month core.Month) []core.TiffinOrder {
	return s.MonthSummary(month).Orders
}

func (s *OrderService) MonthSummary(month core.Month) core.MonthSummary {
	return stats.Monthly(s.ledger.ListAll(), s.roster.List(), month)
}

func (s *OrderService) Members() []core.Member {
	return s.roster.List()
}

func (s *OrderService) AddMember(ctx context.Context, name string) (core.Member, error) {
	m, err := s.roster.Add(ctx, name)
	if err != nil {
		s.metrics.ObserveOp("add_member", resultOf(err))
		return core.Member{}, fmt.Errorf("add member: %w", err)
	}
	s.metrics.ObserveOp("add_member", metrics.ResultOK)
	s.refreshCounts()
	s.notify(ctx, core.NewLedgerEvent(core.EntityMember, core.ActionCreated, m.ID, ""))
	return m, nil
}

// RemoveMember drops id from the roster. Orders that reference it keep the
// id and summarize it as unknown.
func (s *OrderService) RemoveMember(ctx context.Context, id string) error {
	removed, ok, err := s.roster.Remove(ctx, id)
	if err != nil {
		s.metrics.ObserveOp("remove_member", resultOf(err))
		return fmt.Errorf("remove member: %w", err)
	}
	s.metrics.ObserveOp("remove_member", metrics.ResultOK)
	if !ok {
		return nil
	}
	s.refreshCounts()
	s.notify(ctx, core.NewLedgerEvent(core.EntityMember, core.ActionDeleted, removed.ID, ""))
	return nil
}

// notify fans event out. The local write already succeeded, so failures are
// only logged.
func (s *OrderService) notify(ctx context.Context, event core.LedgerEvent) {
	for _, n := range s.notifiers {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err := n.Notify(nctx, event)
		cancel()
		s.metrics.ObserveNotify(n.name, err)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				"notifier", n.name,
				"entity", event.Entity,
				"action", event.Action,
				"id", event.ID,
				"error", err)
		}
	}
}

func (s *OrderService) refreshCounts() {
	s.metrics.SetCounts(s.ledger.Len(), len(s.roster.List()))
}

func resultOf(err error) string {
	if core.IsValidation(err) {
		return metrics.ResultInvalid
	}
	return metrics.ResultError
}
