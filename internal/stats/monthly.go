// Package stats derives monthly summaries from ledger snapshots.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"tiffin/internal/core"
)

type memberAccumulator struct {
	id       string
	quantity int
	amount   decimal.Decimal
}

// Monthly filters orders to month, newest first, and reduces them to totals
// and per-member shares. Members are looked up only for display names; ids
// that no longer resolve are reported as core.UnknownMemberName.
func Monthly(orders []core.TiffinOrder, members []core.Member, month core.Month) core.MonthSummary {
	filtered := make([]core.TiffinOrder, 0, len(orders))
	for _, o := range orders {
		if month.Contains(o.Date) {
			filtered = append(filtered, o.Clone())
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date > filtered[j].Date
	})

	total := decimal.Zero
	byMember := map[string]*memberAccumulator{}
	var seenOrder []string

	for _, o := range filtered {
		if o.TotalAmount != nil {
			total = total.Add(decimal.NewFromFloat(*o.TotalAmount))
		}
		perPerson := decimal.Zero
		if o.PerPersonAmount != nil {
			perPerson = decimal.NewFromFloat(*o.PerPersonAmount)
		}
		for _, mq := range o.Quantities() {
			acc, ok := byMember[mq.MemberID]
			if !ok {
				acc = &memberAccumulator{id: mq.MemberID, amount: decimal.Zero}
				byMember[mq.MemberID] = acc
				seenOrder = append(seenOrder, mq.MemberID)
			}
			acc.quantity += mq.Quantity
			acc.amount = acc.amount.Add(perPerson.Mul(decimal.NewFromInt(int64(mq.Quantity))))
		}
	}

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	stats := make([]core.MemberStats, 0, len(seenOrder))
	for _, id := range seenOrder {
		acc := byMember[id]
		name, ok := names[id]
		if !ok {
			name = core.UnknownMemberName
		}
		s := core.MemberStats{
			MemberID:      id,
			Name:          name,
			TotalQuantity: acc.quantity,
			TotalAmount:   acc.amount.InexactFloat64(),
		}
		if acc.quantity > 0 {
			s.AveragePerOrder = acc.amount.Div(decimal.NewFromInt(int64(acc.quantity))).InexactFloat64()
		}
		stats = append(stats, s)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].TotalAmount != stats[j].TotalAmount {
			return stats[i].TotalAmount > stats[j].TotalAmount
		}
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].MemberID < stats[j].MemberID
	})

	summary := core.MonthSummary{
		Month:       month,
		Orders:      filtered,
		TotalOrders: len(filtered),
		TotalAmount: total.InexactFloat64(),
		Members:     stats,
	}
	if len(filtered) > 0 {
		summary.AverageAmount = total.Div(decimal.NewFromInt(int64(len(filtered)))).InexactFloat64()
	}
	return summary
}
