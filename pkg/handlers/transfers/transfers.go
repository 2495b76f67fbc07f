// Package transfers holds the HTTP handlers for the two-phase transfer
// workflow: initiation by the sender, accept/reject by the recipient.
package transfers

import (
	"encoding/json"
	"net/http"

	"github.com/egegvner/minibank/pkg/handlers"
	"github.com/egegvner/minibank/pkg/ledger"
	"github.com/egegvner/minibank/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// Handler holds the dependencies for transfer-related handlers.
type Handler struct {
	Engine *ledger.Engine
}

// NewHandler creates a new transfers Handler.
func NewHandler(engine *ledger.Engine) *Handler {
	return &Handler{Engine: engine}
}

// Initiate handles POST /transfers. The authenticated caller is the sender.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		handlers.WriteError(w, ledger.ErrForbidden)
		return
	}

	var req handlers.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid request body")
		return
	}

	rec, err := h.Engine.InitiateTransfer(r.Context(), identity.AccountID, req.RecipientUsername, req.Amount)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, handlers.ToTransaction(rec))
}

// Accept handles POST /transfers/{id}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, ledger.DecisionAccept)
}

// Reject handles POST /transfers/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, ledger.DecisionReject)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, decision ledger.Decision) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		handlers.WriteError(w, ledger.ErrForbidden)
		return
	}

	rec, err := h.Engine.ResolveTransfer(r.Context(), chi.URLParam(r, "id"), decision, identity.AccountID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.ToTransaction(rec))
}
