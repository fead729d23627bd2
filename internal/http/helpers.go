package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tiffin/internal/core"
	applog "tiffin/internal/log"
	"tiffin/internal/services"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error    string            `json:"error"`
	Field    string            `json:"field,omitempty"`
	Existing *core.TiffinOrder `json:"existing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps service errors onto status codes:
// validation 422, existing order 409, persistence 503, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		exists *services.ExistsError
		ve     *core.ValidationError
	)
	switch {
	case errors.As(err, &exists):
		existing := exists.Existing
		writeJSON(w, http.StatusConflict, errorResponse{Error: services.ErrOrderExists.Error(), Existing: &existing})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Err.Error(), Field: ve.Field})
	case core.IsPersistence(err):
		logRequestError(r, "Storage unavailable", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
	default:
		logRequestError(r, "Request failed", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// logRequestError logs through the request-scoped logger so the line carries
// the request id.
func logRequestError(r *http.Request, msg string, err error) {
	fields := applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "")
	requestLogger(r).LogError(r.Context(), msg, err, operationOf(r), fields)
}

func requestLogger(r *http.Request) *applog.StructuredLogger {
	return applog.NewStructuredLogger(applog.FromContext(r.Context()))
}

func operationOf(r *http.Request) string {
	switch r.Method {
	case http.MethodPost:
		return applog.OpCreate
	case http.MethodDelete:
		return applog.OpDelete
	default:
		return applog.OpRead
	}
}

// decodeJSON reads a single JSON document of bounded size into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: trailing data")
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}
