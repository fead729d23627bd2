package memory

import (
	"context"
	"log/slog"
	"sync"

	"tiffin/internal/core"
	ports "tiffin/internal/sheets"
)

var _ ports.SummaryWriter = (*Writer)(nil)

// Writer keeps the last summary written for each month. The worker uses it
// when no spreadsheet is configured.
type Writer struct {
	mu     sync.Mutex
	months map[string]core.MonthSummary
	writes int
}

func New() *Writer {
	return &Writer{months: make(map[string]core.MonthSummary)}
}

func (w *Writer) WriteMonthSummary(ctx context.Context, summary core.MonthSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.months[summary.Month.String()] = summary
	w.writes++
	slog.DebugContext(ctx, "Month summary stored in memory",
		"month", summary.Month.String(),
		"orders", summary.TotalOrders,
		"total", summary.TotalAmount)
	return nil
}

// Summary returns the last summary written for month.
func (w *Writer) Summary(month core.Month) (core.MonthSummary, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.months[month.String()]
	return s, ok
}

// Writes counts calls to WriteMonthSummary.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
