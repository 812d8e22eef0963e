package storage

import (
	"context"

	"github.com/chris/campus-ledger/pkg/models"
)

// ReferenceIndex keeps per-account pointers into the ledger.
type ReferenceIndex interface {
	// AddReference appends a reference row under the account.
	AddReference(ctx context.Context, accountKey, txID string, dir models.Direction) error

	// ListReferences returns the transaction IDs referenced by the account.
	// A limit of 0 means unbounded. Order is unspecified.
	ListReferences(ctx context.Context, accountKey string, limit int32) ([]string, error)

	// HasReference reports whether the account holds a row for txID in direction dir.
	HasReference(ctx context.Context, accountKey, txID string, dir models.Direction) (bool, error)
}
