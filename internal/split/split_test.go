package split

import (
	"math"
	"testing"
)

func TestFromTotal(t *testing.T) {
	tests := []struct {
		name       string
		total      float64
		quantities []int
		want       float64
		ok         bool
	}{
		{"even split", 100, []int{1, 1}, 50, true},
		{"weighted units", 90, []int{1, 2}, 30, true},
		{"rounds down", 100, []int{1, 1, 1}, 33.33, true},
		{"rounds half up", 0.05, []int{2}, 0.03, true},
		{"zero total", 0, []int{1, 1}, 0, true},
		{"negative total", -10, []int{1}, 0, false},
		{"nan total", math.NaN(), []int{1}, 0, false},
		{"infinite total", math.Inf(1), []int{1}, 0, false},
		{"zero quantity sum", 100, []int{0, 0}, 0, false},
		{"no quantities", 100, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromTotal(tt.total, tt.quantities)
			if ok != tt.ok {
				t.Fatalf("FromTotal(%v, %v) ok = %v, want %v", tt.total, tt.quantities, ok, tt.ok)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("FromTotal(%v, %v) = %v, want %v", tt.total, tt.quantities, got, tt.want)
			}
		})
	}
}

func TestFromPerPerson(t *testing.T) {
	tests := []struct {
		name       string
		perPerson  float64
		quantities []int
		want       float64
		ok         bool
	}{
		{"single unit", 45, []int{1}, 45, true},
		{"three units", 33.33, []int{1, 2}, 99.99, true},
		{"negative", -1, []int{1}, 0, false},
		{"zero quantity sum", 10, []int{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromPerPerson(tt.perPerson, tt.quantities)
			if ok != tt.ok {
				t.Fatalf("FromPerPerson(%v, %v) ok = %v, want %v", tt.perPerson, tt.quantities, ok, tt.ok)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("FromPerPerson(%v, %v) = %v, want %v", tt.perPerson, tt.quantities, got, tt.want)
			}
		})
	}
}

func TestRoundTripStaysWithinACent(t *testing.T) {
	totals := []float64{0, 1, 9.99, 100, 123.45, 1000.01, 77.77}
	quantitySets := [][]int{{1}, {1, 1}, {1, 2}, {3}, {1, 1, 1}, {2, 2, 3}}

	for _, total := range totals {
		for _, qs := range quantitySets {
			per, ok := FromTotal(total, qs)
			if !ok {
				t.Fatalf("FromTotal(%v, %v) reported no value", total, qs)
			}
			back, ok := FromPerPerson(per, qs)
			if !ok {
				t.Fatalf("FromPerPerson(%v, %v) reported no value", per, qs)
			}
			// Rounding error is at most half a cent per unit.
			units := 0
			for _, q := range qs {
				units += q
			}
			if math.Abs(back-total) > 0.005*float64(units)+1e-9 {
				t.Fatalf("round trip of %v over %v gave %v", total, qs, back)
			}
		}
	}
}

func TestPerPersonAtSave(t *testing.T) {
	if got := PerPersonAtSave(nil, []int{1, 2}); got != nil {
		t.Fatalf("expected no value without a total, got %v", *got)
	}

	total := 60.0
	got := PerPersonAtSave(&total, []int{2})
	if got == nil || *got != 30 {
		t.Fatalf("expected 30, got %v", got)
	}

	if got := PerPersonAtSave(&total, []int{0}); got != nil {
		t.Fatalf("expected no value for zero units, got %v", *got)
	}
}
