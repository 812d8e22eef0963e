package storage

import (
	"context"

	"github.com/chris/campus-ledger/pkg/models"
)

// AccountReader defines the read side of the account store.
type AccountReader interface {
	// GetAccount retrieves an account by its internal key.
	GetAccount(ctx context.Context, accountKey string) (*models.Account, error)

	// GetRoleExtension retrieves the role extension of an account.
	GetRoleExtension(ctx context.Context, accountKey string, role models.Role) (*models.RoleExtension, error)
}

// AccountStore owns account records, their role extensions and balances.
type AccountStore interface {
	AccountReader

	// CreateAccount writes the account and its role extension together.
	// Identity uniqueness is enforced here.
	CreateAccount(ctx context.Context, account *models.Account, ext *models.RoleExtension) (*models.Account, error)

	// UpdateProfile writes the supplied profile fields and refreshes updated_at.
	UpdateProfile(ctx context.Context, accountKey string, update models.ProfileUpdate) (*models.Account, error)

	// AdjustFunds atomically applies a delta to funds, increments the
	// transaction count and refreshes updated_at. It returns the new balance.
	AdjustFunds(ctx context.Context, adj models.FundsAdjustment) (int64, error)

	// DeleteAccount removes the account and its role extension.
	DeleteAccount(ctx context.Context, accountKey string) error
}
