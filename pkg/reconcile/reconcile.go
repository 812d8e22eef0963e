// Package reconcile finds transfers that were recorded but never fully
// indexed or settled, and drives them to completion.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/scheduler"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/chris/campus-ledger/pkg/transfer"
)

// Transfers inspects and replays recorded transfers.
type Transfers interface {
	Inspect(ctx context.Context, tx *models.Transaction) (transfer.Stage, error)
	Resume(ctx context.Context, tx *models.Transaction) (*transfer.Result, error)
}

// Report summarises one reconciliation run.
type Report struct {
	Scanned    int
	Incomplete int
	Requeued   int
	Resumed    int
	Failed     int
}

// Reconciler scans recent Transactions for incomplete transfers.
type Reconciler struct {
	ledger    storage.TransactionLedger
	transfers Transfers
	scheduler scheduler.Scheduler
	minAge    time.Duration
	lookback  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Reconciler. Transactions younger than minAge are skipped so
// that transfers still in flight are not picked up; Transactions older than
// lookback are not scanned. When sched is nil incomplete transfers are
// resumed in-process instead of being requeued.
func New(ledger storage.TransactionLedger, transfers Transfers, sched scheduler.Scheduler, minAge, lookback time.Duration, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		ledger:    ledger,
		transfers: transfers,
		scheduler: sched,
		minAge:    minAge,
		lookback:  lookback,
		now:       time.Now,
		logger:    logger,
	}
}

// Run performs one reconciliation pass. A failure on one Transaction does not
// stop the pass; it is counted in Report.Failed.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	to := r.now().Add(-r.minAge)
	from := to.Add(-r.lookback)
	log := r.logger.With("from", from, "to", to)
	log.Info("starting reconciliation")

	txs, err := r.ledger.ListRecorded(ctx, from, to)
	if err != nil {
		return report, fmt.Errorf("failed to list recorded transactions: %w", err)
	}
	report.Scanned = len(txs)

	for i := range txs {
		tx := &txs[i]
		txLog := log.With("transaction_id", tx.Id)

		stage, err := r.transfers.Inspect(ctx, tx)
		if err != nil {
			txLog.Error("failed to inspect transaction", "error", err)
			report.Failed++
			continue
		}
		if stage == transfer.StageSettled {
			continue
		}
		report.Incomplete++
		txLog = txLog.With("stage", stage)

		if r.scheduler != nil {
			if err := r.scheduler.ScheduleReplay(ctx, tx, 0); err != nil {
				txLog.Error("failed to requeue incomplete transfer", "error", err)
				report.Failed++
				continue
			}
			txLog.Info("requeued incomplete transfer")
			report.Requeued++
			continue
		}

		if _, err := r.transfers.Resume(ctx, tx); err != nil {
			txLog.Error("failed to resume incomplete transfer", "error", err)
			report.Failed++
			continue
		}
		txLog.Info("resumed incomplete transfer")
		report.Resumed++
	}

	log.Info("reconciliation finished",
		"scanned", report.Scanned,
		"incomplete", report.Incomplete,
		"requeued", report.Requeued,
		"resumed", report.Resumed,
		"failed", report.Failed,
	)
	return report, nil
}
