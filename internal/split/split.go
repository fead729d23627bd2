// Package split converts between a day's total and the per-unit share.
//
// The two conversions are independent: callers invoke whichever matches the
// field the user just edited. Quantity edits never trigger either one; the
// per-person amount that gets stored is recomputed once, at save time, by
// PerPersonAtSave over the final quantities.
package split

import (
	"math"

	"github.com/shopspring/decimal"
)

// FromTotal returns total / sum(quantities) rounded half-up to cents.
// It reports false for a negative or non-finite total and for an empty or
// zero quantity sum.
func FromTotal(total float64, quantities []int) (float64, bool) {
	units, ok := sum(quantities)
	if !ok || !usable(total) {
		return 0, false
	}
	v := decimal.NewFromFloat(total).
		Div(decimal.NewFromInt(units)).
		Round(2)
	return v.InexactFloat64(), true
}

// FromPerPerson returns perPerson * sum(quantities) rounded half-up to cents,
// with the same tolerance for invalid input as FromTotal.
func FromPerPerson(perPerson float64, quantities []int) (float64, bool) {
	units, ok := sum(quantities)
	if !ok || !usable(perPerson) {
		return 0, false
	}
	v := decimal.NewFromFloat(perPerson).
		Mul(decimal.NewFromInt(units)).
		Round(2)
	return v.InexactFloat64(), true
}

// PerPersonAtSave is the authoritative per-person amount stored with an
// order. An absent total, or quantities that do not add up to a positive
// number, leave it absent.
func PerPersonAtSave(total *float64, quantities []int) *float64 {
	if total == nil {
		return nil
	}
	v, ok := FromTotal(*total, quantities)
	if !ok {
		return nil
	}
	return &v
}

func sum(quantities []int) (int64, bool) {
	var total int64
	for _, q := range quantities {
		total += int64(q)
	}
	return total, total > 0
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
