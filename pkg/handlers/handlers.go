package handlers

import (
	"log/slog"

	"github.com/chris/campus-ledger/pkg/api"
	"github.com/chris/campus-ledger/pkg/handlers/accounts"
	"github.com/chris/campus-ledger/pkg/handlers/transactions"
)

// ApiHandler implements api.ServerInterface by composing the account and
// transaction handlers.
type ApiHandler struct {
	*accounts.AccountsHandler
	*transactions.TransactionsHandler
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(accountSvc accounts.Service, transferSvc transactions.Service, logger *slog.Logger) *ApiHandler {
	return &ApiHandler{
		AccountsHandler:     accounts.NewAccountsHandler(accountSvc, logger),
		TransactionsHandler: transactions.NewTransactionsHandler(transferSvc, logger),
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)
