// Package accounts holds the account-facing HTTP handlers: registration,
// login, reads and the deposit/withdraw operations.
package accounts

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/egegvner/minibank/pkg/auth"
	"github.com/egegvner/minibank/pkg/handlers"
	"github.com/egegvner/minibank/pkg/ledger"
	"github.com/egegvner/minibank/pkg/middleware"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Handler holds the dependencies for account-related handlers.
type Handler struct {
	Engine  *ledger.Engine
	Gateway *auth.Gateway
	Admin   storage.AccountAdmin
}

// NewHandler creates a new accounts Handler.
func NewHandler(engine *ledger.Engine, gateway *auth.Gateway, admin storage.AccountAdmin) *Handler {
	return &Handler{Engine: engine, Gateway: gateway, Admin: admin}
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req handlers.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid request body")
		return
	}

	acct, err := h.Gateway.Register(r.Context(), req.Username, req.Password, req.VisibleName, req.Email)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, handlers.ToAccount(acct))
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req handlers.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid request body")
		return
	}

	identity, token, err := h.Gateway.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	acct, err := h.Engine.GetAccount(r.Context(), identity.AccountID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.LoginResponse{Token: token, Account: handlers.ToAccount(acct)})
}

// Get handles GET /accounts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}
	acct, err := h.Engine.GetAccount(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.ToAccount(acct))
}

// GetByUsername handles GET /accounts/by-username/{username}. Any
// authenticated caller may resolve a username; only the balance owner or an
// admin sees the full row, others get the public subset.
func (h *Handler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		handlers.WriteError(w, ledger.ErrForbidden)
		return
	}

	acct, err := h.Engine.GetAccountByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	if identity.AccountID != acct.ID && !identity.Admin {
		public := &models.Account{ID: acct.ID, Username: acct.Username, VisibleName: acct.VisibleName, CreatedAt: acct.CreatedAt}
		handlers.WriteJSON(w, http.StatusOK, handlers.ToAccount(public))
		return
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.ToAccount(acct))
}

// History handles GET /accounts/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}
	recs, err := h.Engine.GetHistory(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.ToTransactions(recs))
}

// Deposit handles POST /accounts/{id}/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.Engine.Deposit)
}

// Withdraw handles POST /accounts/{id}/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.Engine.Withdraw)
}

// Delete handles DELETE /accounts/{id}. Admin only; cascades to the account's
// transaction records.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok || !h.Gateway.IsAdmin(identity) {
		handlers.WriteError(w, ledger.ErrForbidden)
		return
	}
	if err := h.Admin.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		handlers.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSuspended handles PUT /accounts/{id}/suspended. Admin only. Suspension
// blocks new balance mutations but never the resolution of transfers already
// in flight.
func (h *Handler) SetSuspended(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok || !h.Gateway.IsAdmin(identity) {
		handlers.WriteError(w, ledger.ErrForbidden)
		return
	}
	var req handlers.SuspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid request body")
		return
	}
	if err := h.Admin.SetSuspended(r.Context(), chi.URLParam(r, "id"), req.Suspended); err != nil {
		handlers.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyAmount(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string, amount decimal.Decimal) (*models.TransactionRecord, error)) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}
	var req handlers.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid request body")
		return
	}
	rec, err := op(r.Context(), id, req.Amount)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, handlers.ToTransaction(rec))
}

// authorize resolves the {id} path parameter and checks that the caller is
// the account owner or an admin.
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
