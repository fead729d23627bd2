// Package core provides the tiffin domain types and amount handling.
//
// Amounts are float64 on the wire to keep the persisted JSON layout, but all
// rounding goes through decimal arithmetic so that half-cent values round up
// the way a person would round them by hand.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads an amount typed into a text field.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Blank,
// non-numeric, negative or non-finite input reports false: the field simply
// holds no value yet.
//
// Examples:
//
//	ParseAmount("12.5")  -> 12.5, true
//	ParseAmount("12,50") -> 12.5, true
//	ParseAmount("")      -> 0, false
//	ParseAmount("-3")    -> 0, false
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Round2 rounds v to cents, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatAmount renders v with exactly two decimals.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Amount returns a pointer to v, for optional amount fields.
func Amount(v float64) *float64 {
	return &v
}
