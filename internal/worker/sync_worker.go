package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tiffin/internal/amqp"
	"tiffin/internal/core"
	"tiffin/internal/ledger"
	"tiffin/internal/sheets"
	"tiffin/internal/stats"
	"tiffin/internal/storage"
)

// SyncWorker rebuilds month summaries from the shared store and hands them to
// a SummaryWriter.
type SyncWorker struct {
	store  storage.Store
	writer sheets.SummaryWriter
	now    func() time.Time
}

func NewSyncWorker(store storage.Store, writer sheets.SummaryWriter) *SyncWorker {
	return &SyncWorker{
		store:  store,
		writer: writer,
		now:    time.Now,
	}
}

// HandleLedgerEvent resyncs the month an AMQP ledger event affects. Member
// events carry no date and resync the month they happened in.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	month := msg.AffectedMonth()
	slog.InfoContext(ctx, "Processing ledger event",
		"entity", msg.Entity,
		"action", msg.Action,
		"id", msg.ID,
		"month", month.String())

	if err := w.SyncMonth(ctx, month); err != nil {
		return fmt.Errorf("sync month %s: %w", month, err)
	}
	return nil
}

// SyncMonth reads a fresh snapshot and writes the month's summary.
func (w *SyncWorker) SyncMonth(ctx context.Context, month core.Month) error {
	snap, err := ledger.ReadSnapshot(ctx, w.store)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	summary := stats.Monthly(snap.Orders, snap.Members, month)
	if err := w.writer.WriteMonthSummary(ctx, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	slog.InfoContext(ctx, "Month summary synced",
		"month", month.String(),
		"orders", summary.TotalOrders,
		"total", core.FormatAmount(summary.TotalAmount))
	return nil
}

// StartupSync catches up on the current and previous month, which a worker
// that was down may have missed.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	current := core.MonthOf(w.now())
	for _, m := range []core.Month{current.Prev(), current} {
		if err := w.SyncMonth(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// RunPeriodic resyncs the current month every interval until ctx is done.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.SyncMonth(ctx, core.MonthOf(w.now())); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
