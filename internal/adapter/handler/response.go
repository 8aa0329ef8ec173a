package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/core/service"
)

var errNotFound = errors.New("not found")

type ErrorHTTPResponse struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
	FailedIn string                  `json:"failed_in,omitempty"`
	Applied  []domain.PurchaseAction `json:"applied,omitempty"`
	Details  map[string]string       `json:"details,omitempty"`
}

func statusFor(err error) (int, string) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrEmptyRequest):
		return http.StatusBadRequest, "no items requested"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "quantity must be positive"
	case errors.Is(err, service.ErrDuplicateDocument):
		return http.StatusConflict, "document already processed"
	case errors.Is(err, errNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
