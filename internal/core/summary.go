package core

// UnknownMemberName is shown for member ids that no longer resolve.
const UnknownMemberName = "Unknown"

// MemberStats is one member's share of a month.
type MemberStats struct {
	MemberID        string  `json:"memberId"`
	Name            string  `json:"name"`
	TotalQuantity   int     `json:"totalQuantity"`
	TotalAmount     float64 `json:"totalAmount"`
	AveragePerOrder float64 `json:"averagePerOrder"`
}

// MonthSummary is the derived view of a calendar month. It is never stored.
type MonthSummary struct {
	Month         Month         `json:"month"`
	Orders        []TiffinOrder `json:"orders"` // newest first
	TotalOrders   int           `json:"totalOrders"`
	TotalAmount   float64       `json:"totalAmount"`
	AverageAmount float64       `json:"averageAmount"`
	Members       []MemberStats `json:"members"` // by TotalAmount, descending
}
