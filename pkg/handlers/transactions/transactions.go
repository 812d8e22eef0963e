package transactions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chris/campus-ledger/pkg/api"
	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/handlers/respond"
	"github.com/chris/campus-ledger/pkg/mapping"
	"github.com/chris/campus-ledger/pkg/middleware"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/transfer"
)

// Service is the transfer orchestration the handlers call.
type Service interface {
	Execute(ctx context.Context, caller auth.Principal, req transfer.Request) (*transfer.Result, error)
	Get(ctx context.Context, caller auth.Principal, txID string) (*models.Transaction, error)
}

// TransactionsHandler holds the dependencies for transaction-related handlers.
type TransactionsHandler struct {
	Service Service
	Logger  *slog.Logger
}

// NewTransactionsHandler creates a new TransactionsHandler.
func NewTransactionsHandler(service Service, logger *slog.Logger) *TransactionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionsHandler{Service: service, Logger: logger}
}

// CreateTransaction runs a transfer. A transfer that was recorded but not
// completed answers 502 with the transaction ID as reference.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, h.Logger, auth.ErrUnauthenticated)
		return
	}

	var newTx api.NewTransaction
	if err := json.NewDecoder(r.Body).Decode(&newTx); err != nil {
		respond.Error(w, r, h.Logger, fmt.Errorf("%w: invalid request body: %v", transfer.ErrInvalidRequest, err))
		return
	}

	req := mapping.ToTransferRequest(&newTx, middleware.GetRequestID(r.Context()))
	result, err := h.Service.Execute(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	respond.JSON(w, http.StatusCreated, api.TransactionResult{
		TransactionId: result.TransactionID,
		Transaction:   mapping.ToApiTransaction(result.Transaction),
	})
}

// GetTransactionById returns a Transaction to an auditor or a participant.
func (h *TransactionsHandler) GetTransactionById(w http.ResponseWriter, r *http.Request, transactionId string) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, h.Logger, auth.ErrUnauthenticated)
		return
	}

	tx, err := h.Service.Get(r.Context(), caller, transactionId)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiTransaction(tx))
}
