package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/egegvner/minibank/pkg/auth"
	"github.com/egegvner/minibank/pkg/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// WriteError translates an engine error into an HTTP status. Contention gets
// a Retry-After so well-behaved clients retry; everything unrecognised is a
// masked 500 (storage faults must not leak details).
func WriteError(w http.ResponseWriter, err error) {
	var cooldown *ledger.CooldownActiveError
	switch {
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.SecondsRemaining()))
		WriteJSON(w, http.StatusTooManyRequests, errorResponse{Error: cooldown.Error()})
	case errors.Is(err, ledger.ErrValidation):
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrDepositLimitExceeded),
		errors.Is(err, ledger.ErrInsufficientFunds):
		WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrUnknownRecipient),
		errors.Is(err, ledger.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrForbidden),
		errors.Is(err, ledger.ErrSuspendedAccount):
		WriteJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrDuplicatePendingTransfer),
		errors.Is(err, ledger.ErrInvalidStateTransition),
		errors.Is(err, ledger.ErrAccountExists):
		WriteJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrContention):
		w.Header().Set("Retry-After", "1")
		WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		WriteJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// BadRequest reports a malformed request body.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
