package sheets

import (
	"context"

	"tiffin/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter publishes a month's summary, replacing whatever was
	// written for that month before.
	SummaryWriter interface {
		WriteMonthSummary(ctx context.Context, summary core.MonthSummary) error
	}
)
