package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin/internal/core"
	"tiffin/internal/ledger"
	"tiffin/internal/metrics"
	"tiffin/internal/storage"
	"tiffin/internal/storage/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e core.LedgerEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Entity + "_" + e.Action
	}
	return out
}

type failingSetStore struct {
	*memory.Store
}

func (s failingSetStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func sequence() ledger.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newService(t *testing.T, store storage.Store) (*OrderService, *recordingNotifier, *metrics.Metrics) {
	t.Helper()
	ids := sequence()
	m := metrics.New()
	svc := NewOrderService(ledger.New(store, ids), ledger.NewRoster(store, ids), m)
	rec := &recordingNotifier{}
	svc.AddNotifier("test", rec)
	require.NoError(t, svc.Load(context.Background()))
	return svc, rec, m
}

func TestSaveOrderCreatesWithPerPerson(t *testing.T) {
	svc, rec, m := newService(t, memory.New())
	ctx := context.Background()

	res, err := svc.SaveOrder(ctx, OrderDraft{
		Date:        "2024-01-05",
		Members:     []string{"a", "b", "a"},
		Quantities:  map[string]int{"a": 2, "b": 0},
		TotalAmount: "100",
		Notes:       "  rajma  ",
	})
	require.NoError(t, err)

	assert.False(t, res.Updated)
	assert.Equal(t, []string{"a", "b"}, res.Order.Members)
	assert.Equal(t, []int{2, 1}, res.Order.QuantityValues())
	require.NotNil(t, res.Order.PerPersonAmount)
	assert.InDelta(t, 33.33, *res.Order.PerPersonAmount, 1e-9)
	assert.Equal(t, "rajma", res.Order.Notes)
	assert.Equal(t, []string{"order_created"}, rec.actions())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Orders))
}

func TestSaveOrderWithoutTotal(t *testing.T) {
	svc, _, _ := newService(t, memory.New())

	res, err := svc.SaveOrder(context.Background(), OrderDraft{Date: "2024-01-05", Members: []string{"a"}})
	require.NoError(t, err)
	assert.Nil(t, res.Order.TotalAmount)
	assert.Nil(t, res.Order.PerPersonAmount)
}

func TestSaveOrderExistingNeedsOverwrite(t *testing.T) {
	svc, rec, _ := newService(t, memory.New())
	ctx := context.Background()

	first, err := svc.SaveOrder(ctx, OrderDraft{Date: "2024-02-01", Members: []string{"a"}, TotalAmount: "50"})
	require.NoError(t, err)

	_, err = svc.SaveOrder(ctx, OrderDraft{Date: "2024-02-01T12:00:00Z", Members: []string{"b"}, TotalAmount: "70"})
	require.ErrorIs(t, err, ErrOrderExists)
	var exists *ExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, first.Order.ID, exists.Existing.ID)

	res, err := svc.SaveOrder(ctx, OrderDraft{Date: "2024-02-01", Members: []string{"b"}, TotalAmount: "70", Overwrite: true})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, first.Order.ID, res.Order.ID)
	assert.Len(t, svc.ListOrders(), 1)
	assert.Equal(t, []string{"order_created", "order_updated"}, rec.actions())
}

func TestSaveOrderRejectsInvalidDrafts(t *testing.T) {
	svc, rec, m := newService(t, memory.New())
	ctx := context.Background()

	tests := []struct {
		name  string
		draft OrderDraft
		want  error
	}{
		{"no members", OrderDraft{Date: "2024-01-01"}, core.ErrNoMembers},
		{"bad date", OrderDraft{Date: "01/02/2024", Members: []string{"a"}}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveOrder(ctx, tt.draft)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsValidation(err))
		})
	}

	assert.Empty(t, svc.ListOrders())
	assert.Empty(t, rec.actions())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerOps.WithLabelValues("save", metrics.ResultInvalid)))
}

func TestSaveOrderUnusableTotalMeansNoAmount(t *testing.T) {
	svc, _, _ := newService(t, memory.New())
	ctx := context.Background()

	for i, text := range []string{"abc", "-5", "12abc", "   "} {
		date := fmt.Sprintf("2024-04-%02d", i+1)
		res, err := svc.SaveOrder(ctx, OrderDraft{Date: date, Members: []string{"a", "b"}, TotalAmount: text})
		require.NoError(t, err, "total %q", text)
		assert.Nil(t, res.Order.TotalAmount, "total %q", text)
		assert.Nil(t, res.Order.PerPersonAmount, "total %q", text)

		stored, found := svc.FindOrder(date)
		require.True(t, found)
		assert.Nil(t, stored.TotalAmount)
	}
	assert.Len(t, svc.ListOrders(), 4)
}

func TestConcurrentSavesForOneDateConflict(t *testing.T) {
	svc, rec, _ := newService(t, memory.New())
	ctx := context.Background()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.SaveOrder(ctx, OrderDraft{
				Date:        "2024-05-01",
				Members:     []string{"a"},
				TotalAmount: fmt.Sprintf("%d", 10+i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				assert.False(t, res.Updated)
				created++
			case errors.Is(err, ErrOrderExists):
				conflicts++
			default:
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflicts)
	assert.Equal(t, []string{"order_created"}, rec.actions())
}

func TestSaveOrderAcceptsCommaDecimal(t *testing.T) {
	svc, _, _ := newService(t, memory.New())
	res, err := svc.SaveOrder(context.Background(), OrderDraft{Date: "2024-03-03", Members: []string{"a", "b"}, TotalAmount: "12,50"})
	require.NoError(t, err)
	assert.InDelta(t, 12.5, *res.Order.TotalAmount, 1e-9)
	assert.InDelta(t, 6.25, *res.Order.PerPersonAmount, 1e-9)
}

func TestSaveOrderPersistenceFailure(t *testing.T) {
	svc, rec, _ := newService(t, failingSetStore{memory.New()})

	_, err := svc.SaveOrder(context.Background(), OrderDraft{Date: "2024-01-05", Members: []string{"a"}})
	require.Error(t, err)
	assert.True(t, core.IsPersistence(err))
	assert.Empty(t, svc.ListOrders())
	assert.Empty(t, rec.actions())
}

func TestNotifierFailureDoesNotFailSave(t *testing.T) {
	svc, _, m := newService(t, memory.New())
	broken := &recordingNotifier{err: errors.New("broker down")}
	svc.AddNotifier("amqp", broken)

	_, err := svc.SaveOrder(context.Background(), OrderDraft{Date: "2024-01-05", Members: []string{"a"}})
	require.NoError(t, err)
	assert.Len(t, broken.actions(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublish.WithLabelValues("amqp", metrics.ResultError)))
}

func TestDeleteOrder(t *testing.T) {
	svc, rec, _ := newService(t, memory.New())
	ctx := context.Background()

	res, err := svc.SaveOrder(ctx, OrderDraft{Date: "2024-01-05", Members: []string{"a"}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, "missing"))
	require.NoError(t, svc.DeleteOrder(ctx, res.Order.ID))
	require.NoError(t, svc.DeleteOrder(ctx, res.Order.ID))

	_, found := svc.FindOrder("2024-01-05")
	assert.False(t, found)
	assert.Equal(t, []string{"order_created", "order_deleted"}, rec.actions())
}

func TestMembersAndSummary(t *testing.T) {
	svc, rec, _ := newService(t, memory.New())
	ctx := context.Background()

	a, err := svc.AddMember(ctx, " Asha ")
	require.NoError(t, err)
	b, err := svc.AddMember(ctx, "Bo")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, "   ")
	require.ErrorIs(t, err, core.ErrEmptyName)

	_, err = svc.SaveOrder(ctx, OrderDraft{Date: "2024-01-05", Members: []string{a.ID, b.ID}, Quantities: map[string]int{a.ID: 2}, TotalAmount: "60"})
	require.NoError(t, err)
	_, err = svc.SaveOrder(ctx, OrderDraft{Date: "2024-01-20", Members: []string{a.ID}, TotalAmount: "20"})
	require.NoError(t, err)
	_, err = svc.SaveOrder(ctx, OrderDraft{Date: "2024-02-01", Members: []string{b.ID}, TotalAmount: "99"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMember(ctx, b.ID))
	require.NoError(t, svc.RemoveMember(ctx, b.ID))
	assert.Equal(t, []core.Member{a}, svc.Members())

	jan := core.Month{Year: 2024, Month: 1}
	summary := svc.MonthSummary(jan)
	assert.Equal(t, 2, summary.TotalOrders)
	assert.InDelta(t, 80, summary.TotalAmount, 1e-9)
	require.Len(t, summary.Members, 2)
	assert.Equal(t, "Asha", summary.Members[0].Name)
	assert.Equal(t, core.UnknownMemberName, summary.Members[1].Name)

	orders := svc.OrdersInMonth(jan)
	require.Len(t, orders, 2)
	assert.Equal(t, "2024-01-20", orders[0].Date)

	assert.Equal(t, []string{
		"member_created", "member_created",
		"order_created", "order_created", "order_created",
		"member_deleted",
	}, rec.actions())
}

func TestLoadReadsExistingState(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, storage.PutJSON(ctx, store, storage.KeyMembers, []core.Member{{ID: "m1", Name: "Asha"}}))
	require.NoError(t, storage.PutJSON(ctx, store, storage.KeyOrders, []core.TiffinOrder{{ID: "o1", Date: "2024-01-01", Members: []string{"m1"}}}))

	svc, _, m := newService(t, store)
	assert.Len(t, svc.Members(), 1)
	assert.Len(t, svc.ListOrders(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Members))
}
