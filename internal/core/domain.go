package core

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the normalized on-disk format of an order date.
const DateLayout = "2006-01-02"

// perPersonTolerance is half a cent: a stored per-person amount is the
// 2-decimal rounding of total / quantity.
const perPersonTolerance = 0.005 + 1e-9

type (
	Member struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	MemberQuantity struct {
		MemberID string `json:"memberId"`
		Quantity int    `json:"quantity"`
	}

	// TiffinOrder is one day's shared order. MemberQuantities is nil on
	// records written before quantities existed.
	TiffinOrder struct {
		ID               string           `json:"id"`
		Date             string           `json:"date"`
		Members          []string         `json:"members"`
		MemberQuantities []MemberQuantity `json:"memberQuantities,omitempty"`
		Notes            string           `json:"notes"`
		TotalAmount      *float64         `json:"totalAmount,omitempty"`
		PerPersonAmount  *float64         `json:"perPersonAmount,omitempty"`
	}

	OrderParams struct {
		ID               string
		Date             string
		Members          []string
		MemberQuantities []MemberQuantity
		Notes            string
		TotalAmount      *float64
		PerPersonAmount  *float64
	}
)

// NewMember trims name and rejects blank ones.
func NewMember(id, name string) (Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, invalid("name", ErrEmptyName)
	}
	if strings.TrimSpace(id) == "" {
		return Member{}, invalid("id", ErrBlankMemberID)
	}
	return Member{ID: id, Name: name}, nil
}

// NewTiffinOrder validates p and returns an order whose quantities follow
// the order of p.Members.
func NewTiffinOrder(p OrderParams) (TiffinOrder, error) {
	date, err := NormalizeDate(p.Date)
	if err != nil {
		return TiffinOrder{}, err
	}
	if len(p.Members) == 0 {
		return TiffinOrder{}, invalid("members", ErrNoMembers)
	}

	index := make(map[string]int, len(p.Members))
	for i, id := range p.Members {
		if strings.TrimSpace(id) == "" {
			return TiffinOrder{}, invalid("members", ErrBlankMemberID)
		}
		if _, dup := index[id]; dup {
			return TiffinOrder{}, invalid("members", ErrDuplicateMember)
		}
		index[id] = i
	}

	if len(p.MemberQuantities) != len(p.Members) {
		return TiffinOrder{}, invalid("memberQuantities", ErrQuantityMismatch)
	}
	quantities := make([]MemberQuantity, len(p.Members))
	seen := make(map[string]bool, len(p.Members))
	for _, mq := range p.MemberQuantities {
		i, ok := index[mq.MemberID]
		if !ok || seen[mq.MemberID] {
			return TiffinOrder{}, invalid("memberQuantities", ErrQuantityMismatch)
		}
		if mq.Quantity < 1 {
			return TiffinOrder{}, invalid("memberQuantities", ErrInvalidQuantity)
		}
		seen[mq.MemberID] = true
		quantities[i] = mq
	}

	if !validAmount(p.TotalAmount) {
		return TiffinOrder{}, invalid("totalAmount", ErrInvalidAmount)
	}
	if !validAmount(p.PerPersonAmount) {
		return TiffinOrder{}, invalid("perPersonAmount", ErrInvalidAmount)
	}

	order := TiffinOrder{
		ID:               p.ID,
		Date:             date,
		Members:          append([]string(nil), p.Members...),
		MemberQuantities: quantities,
		Notes:            strings.TrimSpace(p.Notes),
		TotalAmount:      copyAmount(p.TotalAmount),
		PerPersonAmount:  copyAmount(p.PerPersonAmount),
	}
	if err := order.checkPerPerson(); err != nil {
		return TiffinOrder{}, err
	}
	return order, nil
}

func (o TiffinOrder) checkPerPerson() error {
	switch {
	case o.TotalAmount == nil && o.PerPersonAmount == nil:
		return nil
	case o.TotalAmount == nil || o.PerPersonAmount == nil:
		return invalid("perPersonAmount", ErrPerPersonMismatch)
	}
	want := *o.TotalAmount / float64(o.TotalQuantity())
	if math.Abs(*o.PerPersonAmount-want) > perPersonTolerance {
		return invalid("perPersonAmount", ErrPerPersonMismatch)
	}
	return nil
}

// Quantities returns the per-member quantities. Legacy records without
// quantities count one unit per listed member.
func (o TiffinOrder) Quantities() []MemberQuantity {
	if o.MemberQuantities == nil {
		out := make([]MemberQuantity, len(o.Members))
		for i, id := range o.Members {
			out[i] = MemberQuantity{MemberID: id, Quantity: 1}
		}
		return out
	}
	return append([]MemberQuantity(nil), o.MemberQuantities...)
}

// QuantityValues returns the quantities as plain integers in member order.
func (o TiffinOrder) QuantityValues() []int {
	qs := o.Quantities()
	out := make([]int, len(qs))
	for i, mq := range qs {
		out[i] = mq.Quantity
	}
	return out
}

func (o TiffinOrder) TotalQuantity() int {
	total := 0
	for _, mq := range o.Quantities() {
		total += mq.Quantity
	}
	return total
}

// Time parses the order date. Legacy dates that do not parse report false.
func (o TiffinOrder) Time() (time.Time, bool) {
	t, err := time.Parse(DateLayout, o.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy safe to hand out of the ledger.
func (o TiffinOrder) Clone() TiffinOrder {
	c := o
	if o.Members != nil {
		c.Members = append([]string(nil), o.Members...)
	}
	if o.MemberQuantities != nil {
		c.MemberQuantities = append([]MemberQuantity(nil), o.MemberQuantities...)
	}
	c.TotalAmount = copyAmount(o.TotalAmount)
	c.PerPersonAmount = copyAmount(o.PerPersonAmount)
	return c
}

// NormalizeDate accepts yyyy-MM-dd or RFC 3339 input and returns yyyy-MM-dd.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), nil
	}
	return "", invalid("date", ErrInvalidDate)
}

// ClampQuantity enforces the minimum of one unit.
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

func validAmount(v *float64) bool {
	if v == nil {
		return true
	}
	return !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v >= 0
}

func copyAmount(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Params returns the constructor input that rebuilds o. Legacy records get
// their fallback quantities made explicit.
func (o TiffinOrder) Params() OrderParams {
	return OrderParams{
		ID:               o.ID,
		Date:             o.Date,
		Members:          append([]string(nil), o.Members...),
		MemberQuantities: o.Quantities(),
		Notes:            o.Notes,
		TotalAmount:      copyAmount(o.TotalAmount),
		PerPersonAmount:  copyAmount(o.PerPersonAmount),
	}
}
