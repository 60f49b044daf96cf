package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"billing-engine/internal/core"

	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type stockErrorDetails struct {
	ProductID string          `json:"product_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
		Details:   details,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps core errors onto HTTP status codes. Unknown errors
// are logged and reported as 500 without leaking their text.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *core.ValidationError
	var stockErr *core.InsufficientStockError
	switch {
	case errors.As(err, &vErr):
		writeError(w, r, vErr.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
	case errors.As(err, &stockErr):
		writeErrorDetails(w, r, stockErr.Error(), "INSUFFICIENT_STOCK", http.StatusConflict, stockErrorDetails{
			ProductID: stockErr.ProductID,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		})
	case errors.Is(err, core.ErrStoreConflict):
		writeError(w, r, "concurrent modification, please retry", "STORE_CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	default:
		h.logger.Error("request failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
