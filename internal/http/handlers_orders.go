package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"tiffin/internal/core"
	"tiffin/internal/services"
	"tiffin/internal/split"
)

// handleListOrders returns every order, or only one month's (newest first)
// when ?month=YYYY-MM is given.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		writeJSON(w, http.StatusOK, nonNil(s.svc.ListOrders()))
		return
	}
	month, err := core.ParseMonth(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.svc.OrdersInMonth(month)))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := core.NormalizeDate(date); err != nil {
		writeError(w, r, err)
		return
	}
	order, ok := s.svc.FindOrder(date)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no order for " + date})
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleSaveOrder answers 201 for a new date, 200 for a confirmed overwrite
// and 409 with the existing order when overwrite was not requested.
func (s *Server) handleSaveOrder(w http.ResponseWriter, r *http.Request) {
	var draft services.OrderDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := s.svc.SaveOrder(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	requestLogger(r).LogOrderSaved(r.Context(), res.Order.ID, res.Order.Date, len(res.Order.Members), res.Order.TotalAmount, res.Updated)

	status := http.StatusCreated
	if res.Updated {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// handleDeleteOrder is idempotent: unknown ids still answer 204.
func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteOrder(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type splitRequest struct {
	Total      string `json:"total"`
	PerPerson  string `json:"perPerson"`
	Quantities []int  `json:"quantities"`
}

type splitResponse struct {
	Total     *float64 `json:"total"`
	PerPerson *float64 `json:"perPerson"`
}

// handleSplit converts whichever amount the form just edited. A total wins
// when both are sent. Quantities below one count as one. Unusable input
// yields nulls, not an error.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	quantities := make([]int, len(req.Quantities))
	for i, q := range req.Quantities {
		quantities[i] = core.ClampQuantity(q)
	}

	var resp splitResponse
	switch {
	case strings.TrimSpace(req.Total) != "":
		if total, ok := core.ParseAmount(req.Total); ok {
			resp.Total = core.Amount(total)
			if per, ok := split.FromTotal(total, quantities); ok {
				resp.PerPerson = core.Amount(per)
			}
		}
	case strings.TrimSpace(req.PerPerson) != "":
		if per, ok := core.ParseAmount(req.PerPerson); ok {
			resp.PerPerson = core.Amount(per)
			if total, ok := split.FromPerPerson(per, quantities); ok {
				resp.Total = core.Amount(total)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSummary aggregates ?month=YYYY-MM, defaulting to the current month.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month := core.MonthOf(time.Now())
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := core.ParseMonth(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		month = m
	}

	summary := s.svc.MonthSummary(month)
	summary.Orders = nonNil(summary.Orders)
	summary.Members = nonNil(summary.Members)
	writeJSON(w, http.StatusOK, summary)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
