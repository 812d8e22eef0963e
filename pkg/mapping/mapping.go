package mapping

import (
	"errors"
	"net/http"

	"github.com/chris/campus-ledger/pkg/accounts"
	"github.com/chris/campus-ledger/pkg/api"
	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/chris/campus-ledger/pkg/transfer"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ToApiTransaction converts a domain Transaction model to an API Transaction model.
func ToApiTransaction(tx *models.Transaction) api.Transaction {
	return api.Transaction{
		Id:        tx.Id,
		Type:      api.TransactionType(tx.Type),
		Amount:    tx.Amount,
		Sender:    tx.Sender,
		Receiver:  tx.Receiver,
		Message:   optional(tx.Message),
		CreatedAt: tx.CreatedAt,
	}
}

// ToApiTransactions converts a list of domain Transactions, keeping order.
func ToApiTransactions(txs []models.Transaction) []api.Transaction {
	out := make([]api.Transaction, len(txs))
	for i := range txs {
		out[i] = ToApiTransaction(&txs[i])
	}
	return out
}

// ToApiAccount converts a profile to its API form. A profile that is not
// Full carries only the ID number, the name and the role.
func ToApiAccount(p *accounts.Profile) api.Account {
	acc := p.Account
	out := api.Account{
		IdNumber:   acc.IDNumber,
		FirstName:  acc.FirstName,
		MiddleName: optional(acc.MiddleName),
		LastName:   acc.LastName,
		Role:       api.AccountRole(acc.Role),
	}
	if !p.Full {
		return out
	}

	email := openapi_types.Email(acc.Email)
	hasPIN := acc.HasPIN()
	out.AccountKey = &acc.AccountKey
	out.CardNumber = optional(acc.CardNumber)
	out.Email = &email
	out.MobileNumber = optional(acc.MobileNumber)
	out.Address = optional(acc.Address)
	out.Funds = &acc.Funds
	out.TransactionCount = &acc.TransactionCount
	out.Disabled = &acc.Disabled
	out.HasPin = &hasPIN
	out.CreatedAt = &acc.CreatedAt
	out.UpdatedAt = &acc.UpdatedAt
	if p.Extension != nil {
		fields := p.Extension.Fields
		out.RoleFields = &fields
	}
	return out
}

// ToRegisterRequest converts an API NewAccount to a registration request.
func ToRegisterRequest(in *api.NewAccount) accounts.RegisterRequest {
	req := accounts.RegisterRequest{
		AccountKey:   value(in.AccountKey),
		IDNumber:     in.IdNumber,
		CardNumber:   value(in.CardNumber),
		Email:        string(in.Email),
		FirstName:    in.FirstName,
		MiddleName:   value(in.MiddleName),
		LastName:     in.LastName,
		MobileNumber: value(in.MobileNumber),
		Address:      value(in.Address),
		Role:         models.Role(in.Role),
	}
	if in.RoleFields != nil {
		req.Fields = *in.RoleFields
	}
	return req
}

// ToUpdateRequest converts an API AccountUpdate to an update request.
func ToUpdateRequest(in *api.AccountUpdate) accounts.UpdateRequest {
	return accounts.UpdateRequest{
		FirstName:    in.FirstName,
		MiddleName:   in.MiddleName,
		LastName:     in.LastName,
		MobileNumber: in.MobileNumber,
		Address:      in.Address,
		Disabled:     in.Disabled,
		PIN:          in.Pin,
	}
}

// ToTransferRequest converts an API NewTransaction to a transfer request.
func ToTransferRequest(in *api.NewTransaction, requestID string) transfer.Request {
	return transfer.Request{
		Type:             models.TransactionType(in.Type),
		Amount:           in.Amount,
		SenderIDNumber:   value(in.SenderIdNumber),
		SenderCardNumber: value(in.SenderCardNumber),
		ReceiverIDNumber: in.ReceiverIdNumber,
		PIN:              value(in.Pin),
		Message:          value(in.Message),
		RequestID:        requestID,
	}
}

// ToApiError maps a domain error to an HTTP status and response body.
// Unrecognised errors map to 500 with a generic message.
func ToApiError(err error) (int, api.Error) {
	var incomplete *transfer.IncompleteError
	if errors.As(err, &incomplete) {
		ref := incomplete.TransactionID
		return http.StatusBadGateway, api.Error{Message: incomplete.Error(), Reference: &ref}
	}

	var param *api.InvalidParamFormatError
	switch {
	case errors.As(err, &param),
		errors.Is(err, accounts.ErrInvalidRequest),
		errors.Is(err, transfer.ErrInvalidRequest),
		errors.Is(err, transfer.ErrInvalidAmount),
		errors.Is(err, transfer.ErrInvalidType),
		errors.Is(err, transfer.ErrSameAccount),
		errors.Is(err, storage.ErrInvalidRole):
		return http.StatusBadRequest, api.Error{Message: err.Error()}
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, api.Error{Message: "authentication required"}
	case errors.Is(err, auth.ErrForbidden),
		errors.Is(err, auth.ErrCallerDisabled),
		errors.Is(err, transfer.ErrUnauthorized),
		errors.Is(err, transfer.ErrAccountDisabled):
		return http.StatusForbidden, api.Error{Message: err.Error()}
	case errors.Is(err, transfer.ErrUnknownParticipant):
		return http.StatusNotFound, api.Error{Message: transfer.ErrUnknownParticipant.Error()}
	case errors.Is(err, storage.ErrAccountNotFound):
		return http.StatusNotFound, api.Error{Message: storage.ErrAccountNotFound.Error()}
	case errors.Is(err, storage.ErrTransactionNotFound):
		return http.StatusNotFound, api.Error{Message: storage.ErrTransactionNotFound.Error()}
	case errors.Is(err, storage.ErrAccountExists),
		errors.Is(err, storage.ErrDuplicateIDNumber),
		errors.Is(err, storage.ErrDuplicateCardNumber):
		return http.StatusConflict, api.Error{Message: err.Error()}
	case errors.Is(err, transfer.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, api.Error{Message: "Insufficient funds"}
	case errors.Is(err, transfer.ErrPINMismatch):
		return http.StatusUnprocessableEntity, api.Error{Message: transfer.ErrPINMismatch.Error()}
	}
	return http.StatusInternalServerError, api.Error{Message: "internal server error"}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
