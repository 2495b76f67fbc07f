// Package reporting holds the read-only HTTP handlers for account metrics and
// the leaderboard.
package reporting

import (
	"net/http"
	"strconv"
	"time"

	"github.com/egegvner/minibank/pkg/handlers"
	"github.com/egegvner/minibank/pkg/ledger"
	"github.com/egegvner/minibank/pkg/middleware"
	"github.com/egegvner/minibank/pkg/reporting"
	"github.com/go-chi/chi/v5"
)

// Handler holds the dependencies for reporting handlers.
type Handler struct {
	Service *reporting.Service
}

// NewHandler creates a new reporting Handler.
func NewHandler(service *reporting.Service) *Handler {
	return &Handler{Service: service}
}

// Lifetime handles GET /reporting/accounts/{id}/lifetime.
func (h *Handler) Lifetime(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}
	metrics, err := h.Service.Lifetime(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, metrics)
}

// Recent handles GET /reporting/accounts/{id}/recent?window_hours=N.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var window time.Duration
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			handlers.BadRequest(w, "window_hours must be a positive integer")
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	metrics, err := h.Service.Recent(r.Context(), id, window)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, metrics)
}

// Leaderboard handles GET /reporting/leaderboard.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.Leaderboard(r.Context())
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		handlers.WriteError(w, ledger.ErrForbidden)
		return "", false
	}
	id := chi.URLParam(r, "id")
	if identity.AccountID != id && !identity.Admin {
		handlers.WriteError(w, ledger.ErrForbidden)
		return "", false
	}
	return id, true
}
