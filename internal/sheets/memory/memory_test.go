package memory

import (
	"context"
	"testing"

	"tiffin/internal/core"
)

func TestWriterKeepsLatestPerMonth(t *testing.T) {
	w := New()
	jan := core.Month{Year: 2024, Month: 1}
	ctx := context.Background()

	if err := w.WriteMonthSummary(ctx, core.MonthSummary{Month: jan, TotalOrders: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteMonthSummary(ctx, core.MonthSummary{Month: jan, TotalOrders: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok := w.Summary(jan)
	if !ok || got.TotalOrders != 3 {
		t.Fatalf("expected latest summary, got %+v ok=%v", got, ok)
	}
	if _, ok := w.Summary(jan.Next()); ok {
		t.Fatalf("unexpected summary for February")
	}
	if w.Writes() != 2 {
		t.Fatalf("expected 2 writes, got %d", w.Writes())
	}
}
