package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid transfer request")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidType         = errors.New("unsupported transaction type")
	ErrSameAccount         = errors.New("cannot transfer to same account")
	ErrUnknownParticipant  = errors.New("ID number does not exist")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrPINMismatch         = errors.New("PIN does not match")
	ErrAccountDisabled     = errors.New("sender account is disabled")
	ErrUnauthorized        = errors.New("caller is not permitted to create this transaction")
	ErrParticipantNotFound = errors.New("participant of recorded transaction no longer exists")
)

// IncompleteError reports a transfer whose Transaction was recorded but whose
// indexing or settlement did not finish. The Transaction persists and the
// remaining stages can be replayed with Resume.
type IncompleteError struct {
	TransactionID string
	// Stage is the last stage that completed.
	Stage Stage
	Err   error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("transfer could not be fully completed, contact support with reference %s", e.TransactionID)
}

func (e *IncompleteError) Unwrap() error {
	return e.Err
}
