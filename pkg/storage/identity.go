package storage

import (
	"context"

	"github.com/chris/campus-ledger/pkg/models"
)

// IdentityResolver maps human-facing identifiers to accounts. It never mutates.
type IdentityResolver interface {
	// ResolveByIDNumber returns the account key holding idNumber.
	ResolveByIDNumber(ctx context.Context, idNumber string) (string, error)

	// ResolveByCardNumber returns the account holding cardNumber.
	ResolveByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error)
}
