// Package handlers carries the HTTP API surface shared by the endpoint
// subpackages: request/response shapes, domain-to-API mapping, and the typed
// error to status code translation.
package handlers

import (
	"time"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/shopspring/decimal"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	VisibleName string `json:"visible_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and the authenticated account.
type LoginResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// AmountRequest is the body of deposit and withdrawal calls.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SuspendRequest is the body of PUT /accounts/{id}/suspended.
type SuspendRequest struct {
	Suspended bool `json:"suspended"`
}

// TransferRequest is the body of POST /transfers.
type TransferRequest struct {
	RecipientUsername string          `json:"recipient_username"`
	Amount            decimal.Decimal `json:"amount"`
}

// Account is the API shape of an account. The password hash never leaves the
// server.
type Account struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	VisibleName  string          `json:"visible_name,omitempty"`
	Email        string          `json:"email,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	Suspended    bool            `json:"suspended"`
	Deposits     int64           `json:"deposits"`
	Withdrawals  int64           `json:"withdrawals"`
	TransfersIn  int64           `json:"transfers_in"`
	TransfersOut int64           `json:"transfers_out"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Transaction is the API shape of a transaction record.
type Transaction struct {
	ID                   string          `json:"id"`
	AccountID            string          `json:"account_id"`
	Kind                 string          `json:"kind"`
	Amount               decimal.Decimal `json:"amount"`
	ResultingBalance     decimal.Decimal `json:"resulting_balance"`
	CounterpartyUsername string          `json:"counterparty_username,omitempty"`
	Status               string          `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ToAccount converts a domain account to its API shape.
func ToAccount(a *models.Account) *Account {
	return &Account{
		ID:           a.ID,
		Username:     a.Username,
		VisibleName:  a.VisibleName,
		Email:        a.Email,
		Balance:      a.Balance,
		Suspended:    a.Suspended,
		Deposits:     a.Deposits,
		Withdrawals:  a.Withdrawals,
		TransfersIn:  a.TransfersIn,
		TransfersOut: a.TransfersOut,
		CreatedAt:    a.CreatedAt,
	}
}

// ToTransaction converts a domain record to its API shape.
func ToTransaction(r *models.TransactionRecord) *Transaction {
	return &Transaction{
		ID:                   r.ID,
		AccountID:            r.AccountID,
		Kind:                 string(r.Kind),
		Amount:               r.Amount,
		ResultingBalance:     r.ResultingBalance,
		CounterpartyUsername: r.CounterpartyUsername,
		Status:               string(r.Status),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// ToTransactions converts a slice of domain records.
func ToTransactions(recs []models.TransactionRecord) []*Transaction {
	out := make([]*Transaction, len(recs))
	for i := range recs {
		out[i] = ToTransaction(&recs[i])
	}
	return out
}
