package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	domain "github.com/chris/campus-ledger/pkg/accounts"
	"github.com/chris/campus-ledger/pkg/api"
	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/handlers/respond"
	"github.com/chris/campus-ledger/pkg/mapping"
	"github.com/chris/campus-ledger/pkg/models"
)

// Service is the account administration the handlers call.
type Service interface {
	Register(ctx context.Context, caller auth.Principal, req domain.RegisterRequest) (*models.Account, error)
	Get(ctx context.Context, caller auth.Principal, idNumber string) (*domain.Profile, error)
	Update(ctx context.Context, caller auth.Principal, idNumber string, req domain.UpdateRequest) (*models.Account, error)
	Delete(ctx context.Context, caller auth.Principal, idNumber string) error
	ListTransactions(ctx context.Context, caller auth.Principal, idNumber string, limit int32) ([]models.Transaction, error)
}

// AccountsHandler holds the dependencies for account-related handlers.
type AccountsHandler struct {
	Service Service
	Logger  *slog.Logger
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(service Service, logger *slog.Logger) *AccountsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountsHandler{Service: service, Logger: logger}
}

func (h *AccountsHandler) caller(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, h.Logger, auth.ErrUnauthenticated)
	}
	return p, ok
}

// CreateAccount registers a new account.
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var newAccount api.NewAccount
	if err := json.NewDecoder(r.Body).Decode(&newAccount); err != nil {
		respond.Error(w, r, h.Logger, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidRequest, err))
		return
	}

	created, err := h.Service.Register(r.Context(), caller, mapping.ToRegisterRequest(&newAccount))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	respond.JSON(w, http.StatusCreated, mapping.ToApiAccount(&domain.Profile{Account: created, Full: true}))
}

// GetAccount returns a profile, redacted unless the caller may see it in full.
func (h *AccountsHandler) GetAccount(w http.ResponseWriter, r *http.Request, idNumber string) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	profile, err := h.Service.Get(r.Context(), caller, idNumber)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiAccount(profile))
}

// UpdateAccount changes allow-listed profile fields. Unknown fields in the
// body are rejected.
func (h *AccountsHandler) UpdateAccount(w http.ResponseWriter, r *http.Request, idNumber string) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var update api.AccountUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		respond.Error(w, r, h.Logger, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidRequest, err))
		return
	}

	updated, err := h.Service.Update(r.Context(), caller, idNumber, mapping.ToUpdateRequest(&update))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiAccount(&domain.Profile{Account: updated, Full: true}))
}

// DeleteAccount removes an account and its role extension.
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request, idNumber string) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), caller, idNumber); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAccountTransactions returns an account's history, most recent first.
func (h *AccountsHandler) ListAccountTransactions(w http.ResponseWriter, r *http.Request, idNumber string, params api.ListAccountTransactionsParams) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var limit int32
	if params.Limit != nil {
		limit = *params.Limit
	}

	txs, err := h.Service.ListTransactions(r.Context(), caller, idNumber, limit)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiTransactions(txs))
}
