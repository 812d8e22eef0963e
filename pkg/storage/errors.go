package storage

import "errors"

// ErrAccountNotFound is returned when no account matches a key, ID number or card number.
var ErrAccountNotFound = errors.New("account not found")

// ErrTransactionNotFound is returned when a transaction ID does not exist.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrAccountExists is returned when an account key is already taken.
var ErrAccountExists = errors.New("account already exists")

// ErrDuplicateIDNumber is returned when an ID number is already held by another account.
var ErrDuplicateIDNumber = errors.New("ID number already in use")

// ErrDuplicateCardNumber is returned when a card number is already held by another account.
var ErrDuplicateCardNumber = errors.New("card number already in use")

// ErrInvalidRole is returned when an account's role is not registered.
var ErrInvalidRole = errors.New("invalid role")

// ErrInvalidDelta is returned when a funds adjustment would leave a negative balance.
var ErrInvalidDelta = errors.New("funds adjustment would result in a negative balance")

// ErrStaleAccount is returned when an account changed since the expected update time.
var ErrStaleAccount = errors.New("account was modified concurrently")

// ErrAlreadySettled is returned when a settlement leg for a transaction was already applied.
var ErrAlreadySettled = errors.New("settlement leg already applied")

// ErrDuplicateReference is returned when a reference row for a transaction and direction already exists.
var ErrDuplicateReference = errors.New("transaction reference already exists")

// ErrInvalidTransaction is returned when a ledger entry is malformed.
var ErrInvalidTransaction = errors.New("invalid transaction")
