package models

import (
	"time"
)

// TransactionType defines the kind of value movement a transaction records.
type TransactionType string

const (
	SEND    TransactionType = "send"
	RECEIVE TransactionType = "receive"
	CASHIN  TransactionType = "cash-in"
	PAYMENT TransactionType = "payment"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case SEND, RECEIVE, CASHIN, PAYMENT:
		return true
	}
	return false
}

// Direction tags a transaction reference relative to the owning account.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// Leg identifies one balance mutation of a settled transfer.
type Leg string

const (
	LegDebit  Leg = "debit"
	LegCredit Leg = "credit"
)

// Account is the persisted record of a principal: profile, role and funds.
// Funds are held in minor currency units.
type Account struct {
	AccountKey       string    `json:"account_key" dynamodbav:"account_key"`
	IDNumber         string    `json:"id_number" dynamodbav:"id_number"`
	CardNumber       string    `json:"card_number,omitempty" dynamodbav:"card_number,omitempty"`
	Email            string    `json:"email" dynamodbav:"email"`
	FirstName        string    `json:"first_name" dynamodbav:"first_name"`
	MiddleName       string    `json:"middle_name,omitempty" dynamodbav:"middle_name"`
	LastName         string    `json:"last_name" dynamodbav:"last_name"`
	MobileNumber     string    `json:"mobile_number,omitempty" dynamodbav:"mobile_number"`
	Address          string    `json:"address,omitempty" dynamodbav:"address"`
	Role             Role      `json:"role" dynamodbav:"role"`
	Funds            int64     `json:"funds" dynamodbav:"funds"`
	TransactionCount int64     `json:"transaction_count" dynamodbav:"transaction_count"`
	Disabled         bool      `json:"disabled" dynamodbav:"disabled"`
	PINHash          *string   `json:"-" dynamodbav:"pin_hash"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// HasPIN reports whether a payment PIN has been set for the account.
func (a *Account) HasPIN() bool {
	return a.PINHash != nil && *a.PINHash != ""
}

// RoleExtension holds the role-specific fields of an account. It is keyed
// by the same account key and stored in the table of its role.
type RoleExtension struct {
	AccountKey string            `json:"account_key" dynamodbav:"account_key"`
	Role       Role              `json:"role" dynamodbav:"role"`
	Fields     map[string]string `json:"fields" dynamodbav:"fields"`
	CreatedAt  time.Time         `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" dynamodbav:"updated_at"`
}

// ProfileUpdate lists the account fields that may change after registration.
// Nil fields are left untouched. PINHash must already be hashed.
type ProfileUpdate struct {
	FirstName    *string
	MiddleName   *string
	LastName     *string
	MobileNumber *string
	Address      *string
	Disabled     *bool
	PINHash      *string
}

// Empty reports whether the update carries no fields.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.MiddleName == nil && u.LastName == nil &&
		u.MobileNumber == nil && u.Address == nil && u.Disabled == nil && u.PINHash == nil
}

// FundsAdjustment describes one atomic balance mutation.
//
// When TransactionID is set the adjustment is recorded under a settlement
// marker for (TransactionID, Leg) and applied at most once. When
// ExpectedUpdatedAt is set the adjustment only applies if the account was
// not written since.
type FundsAdjustment struct {
	AccountKey        string
	Delta             int64
	ExpectedUpdatedAt *time.Time
	TransactionID     string
	Leg               Leg
}

// Transaction is the immutable ledger record of one value movement.
type Transaction struct {
	Id        string          `json:"id" dynamodbav:"id"`
	Type      TransactionType `json:"type" dynamodbav:"type"`
	Amount    int64           `json:"amount" dynamodbav:"amount"`
	Sender    string          `json:"sender" dynamodbav:"sender"`
	Receiver  string          `json:"receiver" dynamodbav:"receiver"`
	Message   string          `json:"message,omitempty" dynamodbav:"message,omitempty"`
	CreatedAt time.Time       `json:"created_at" dynamodbav:"created_at"`
	LedgerPK  string          `json:"-" dynamodbav:"ledger_pk"`
}

// TransactionReference is a per-account index row pointing at a Transaction.
type TransactionReference struct {
	AccountKey    string    `dynamodbav:"account_key"`
	ReferenceID   string    `dynamodbav:"reference_id"`
	Type          Direction `dynamodbav:"type"`
	TransactionID string    `dynamodbav:"transaction"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
}

// ReferenceID builds the per-account key of a reference row. A transaction
// has at most one row per direction under an account.
func ReferenceID(transactionID string, dir Direction) string {
	return transactionID + "#" + string(dir)
}

// SettlementMarker records that one leg of a transaction has been applied.
type SettlementMarker struct {
	Id            string    `dynamodbav:"id"`
	TransactionID string    `dynamodbav:"transaction_id"`
	AccountKey    string    `dynamodbav:"account_key"`
	Leg           Leg       `dynamodbav:"leg"`
	Delta         int64     `dynamodbav:"delta"`
	SettledAt     time.Time `dynamodbav:"settled_at"`
}

// SettlementID builds the marker key for one leg of a transaction.
func SettlementID(transactionID string, leg Leg) string {
	return transactionID + "#" + string(leg)
}
