package storage

import (
	"context"
	"time"

	"github.com/chris/campus-ledger/pkg/models"
)

// TransactionLedger is the append-only record of value movements.
type TransactionLedger interface {
	// Append stores a new transaction, assigning its ID and creation time.
	Append(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)

	// GetTransaction retrieves a transaction by its ID.
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// GetMany retrieves transactions by ID. Missing IDs are omitted and the
	// result order is unspecified.
	GetMany(ctx context.Context, txIDs []string) ([]models.Transaction, error)

	// ListRecorded returns transactions created in [from, to).
	ListRecorded(ctx context.Context, from, to time.Time) ([]models.Transaction, error)
}
