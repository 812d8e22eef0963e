package storage

import (
	"context"

	"github.com/chris/campus-ledger/pkg/models"
)

// SettlementLog exposes the markers written by AdjustFunds for transaction
// legs. It is used to detect transfers that were recorded but never settled.
type SettlementLog interface {
	// IsSettled reports whether the given leg of a transaction was applied.
	IsSettled(ctx context.Context, txID string, leg models.Leg) (bool, error)
}
