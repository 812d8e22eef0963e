// Package api defines the HTTP contract of the campus ledger: request and
// response bodies and the routing of operations onto a ServerInterface.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// AccountRole names the role of an account.
type AccountRole string

// TransactionType names the kind of value movement.
type TransactionType string

const (
	TransactionTypeCashIn  TransactionType = "cash-in"
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeSend    TransactionType = "send"
	TransactionTypeReceive TransactionType = "receive"
)

// NewAccount is the body of a registration request.
type NewAccount struct {
	// AccountKey is the identity provider's user ID. Generated when omitted.
	AccountKey   *string             `json:"accountKey,omitempty"`
	IdNumber     string              `json:"idNumber"`
	CardNumber   *string             `json:"cardNumber,omitempty"`
	Email        openapi_types.Email `json:"email"`
	FirstName    string              `json:"firstName"`
	MiddleName   *string             `json:"middleName,omitempty"`
	LastName     string              `json:"lastName"`
	MobileNumber *string             `json:"mobileNumber,omitempty"`
	Address      *string             `json:"address,omitempty"`
	Role         AccountRole         `json:"role"`
	RoleFields   *map[string]string  `json:"roleFields,omitempty"`
}

// Account is an account profile. Only IdNumber, the name fields and Role are
// present in a redacted profile.
type Account struct {
	IdNumber         string               `json:"idNumber"`
	FirstName        string               `json:"firstName"`
	MiddleName       *string              `json:"middleName,omitempty"`
	LastName         string               `json:"lastName"`
	Role             AccountRole          `json:"role"`
	AccountKey       *string              `json:"accountKey,omitempty"`
	CardNumber       *string              `json:"cardNumber,omitempty"`
	Email            *openapi_types.Email `json:"email,omitempty"`
	MobileNumber     *string              `json:"mobileNumber,omitempty"`
	Address          *string              `json:"address,omitempty"`
	Funds            *int64               `json:"funds,omitempty"`
	TransactionCount *int64               `json:"transactionCount,omitempty"`
	Disabled         *bool                `json:"disabled,omitempty"`
	HasPin           *bool                `json:"hasPin,omitempty"`
	RoleFields       *map[string]string   `json:"roleFields,omitempty"`
	CreatedAt        *time.Time           `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time           `json:"updatedAt,omitempty"`
}

// AccountUpdate is the body of a profile update. Only these fields may change.
type AccountUpdate struct {
	FirstName    *string `json:"firstName,omitempty"`
	MiddleName   *string `json:"middleName,omitempty"`
	LastName     *string `json:"lastName,omitempty"`
	MobileNumber *string `json:"mobileNumber,omitempty"`
	Address      *string `json:"address,omitempty"`
	Disabled     *bool   `json:"disabled,omitempty"`
	Pin          *string `json:"pin,omitempty"`
}

// NewTransaction is the body of a transfer request.
type NewTransaction struct {
	Type             TransactionType `json:"type"`
	Amount           int64           `json:"amount"`
	SenderIdNumber   *string         `json:"senderIdNumber,omitempty"`
	SenderCardNumber *string         `json:"senderCardNumber,omitempty"`
	ReceiverIdNumber string          `json:"receiverIdNumber"`
	Pin              *string         `json:"pin,omitempty"`
	Message          *string         `json:"message,omitempty"`
}

// Transaction is a recorded value movement. Sender and Receiver are ID numbers.
type Transaction struct {
	Id        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    int64           `json:"amount"`
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Message   *string         `json:"message,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TransactionResult is returned by a successful transfer.
type TransactionResult struct {
	TransactionId string      `json:"transactionId"`
	Transaction   Transaction `json:"transaction"`
}

// Error is the body of every error response. Reference is set when a
// transfer was recorded but could not be completed.
type Error struct {
	Message   string  `json:"message"`
	Reference *string `json:"reference,omitempty"`
}

// ListAccountTransactionsParams defines parameters for ListAccountTransactions.
type ListAccountTransactionsParams struct {
	// Limit caps the number of transactions returned. Zero or absent means no cap.
	Limit *int32 `form:"limit,omitempty" json:"limit,omitempty"`
}
