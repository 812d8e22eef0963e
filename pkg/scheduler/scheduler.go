package scheduler

import (
	"context"
	"time"

	"github.com/chris/campus-ledger/pkg/models"
)

// Scheduler defines the interface for a component that schedules a recorded
// transaction to have its indexing and settlement replayed later.
type Scheduler interface {
	// ScheduleReplay enqueues a transaction for replay after delay.
	ScheduleReplay(ctx context.Context, tx *models.Transaction, delay time.Duration) error
}
