package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin/internal/amqp"
	"tiffin/internal/core"
	"tiffin/internal/sheets/memory"
	"tiffin/internal/storage"
	memstore "tiffin/internal/storage/memory"
)

type failingWriter struct{}

func (failingWriter) WriteMonthSummary(context.Context, core.MonthSummary) error {
	return errors.New("quota exceeded")
}

func seededStore(t *testing.T) storage.Store {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, storage.PutJSON(ctx, store, storage.KeyMembers, []core.Member{{ID: "a", Name: "Asha"}}))
	require.NoError(t, storage.PutJSON(ctx, store, storage.KeyOrders, []core.TiffinOrder{
		{ID: "o1", Date: "2024-01-05", Members: []string{"a"}, TotalAmount: core.Amount(40), PerPersonAmount: core.Amount(40)},
		{ID: "o2", Date: "2024-02-01", Members: []string{"a"}, TotalAmount: core.Amount(10), PerPersonAmount: core.Amount(10)},
	}))
	return store
}

func TestHandleLedgerEventSyncsAffectedMonth(t *testing.T) {
	writer := memory.New()
	w := NewSyncWorker(seededStore(t), writer)

	msg := amqp.NewLedgerEventMessage(core.NewLedgerEvent(core.EntityOrder, core.ActionUpdated, "o1", "2024-01-05"))
	require.NoError(t, w.HandleLedgerEvent(context.Background(), msg))

	jan, ok := writer.Summary(core.Month{Year: 2024, Month: 1})
	require.True(t, ok)
	assert.Equal(t, 1, jan.TotalOrders)
	assert.InDelta(t, 40, jan.TotalAmount, 1e-9)
	require.Len(t, jan.Members, 1)
	assert.Equal(t, "Asha", jan.Members[0].Name)

	_, ok = writer.Summary(core.Month{Year: 2024, Month: 2})
	assert.False(t, ok)
}

func TestHandleLedgerEventPropagatesWriterFailure(t *testing.T) {
	w := NewSyncWorker(seededStore(t), failingWriter{})
	msg := amqp.NewLedgerEventMessage(core.NewLedgerEvent(core.EntityOrder, core.ActionDeleted, "o1", "2024-01-05"))

	err := w.HandleLedgerEvent(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync month 2024-01")
}

func TestStartupSyncWritesCurrentAndPreviousMonth(t *testing.T) {
	writer := memory.New()
	w := NewSyncWorker(seededStore(t), writer)
	w.now = func() time.Time { return time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, w.StartupSync(context.Background()))

	assert.Equal(t, 2, writer.Writes())
	feb, ok := writer.Summary(core.Month{Year: 2024, Month: 2})
	require.True(t, ok)
	assert.InDelta(t, 10, feb.TotalAmount, 1e-9)
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	writer := memory.New()
	w := NewSyncWorker(seededStore(t), writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return writer.Writes() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}
