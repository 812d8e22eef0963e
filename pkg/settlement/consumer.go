// Package settlement consumes queued transfer replays and drives each
// recorded transfer to completion.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/scheduler"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/chris/campus-ledger/pkg/transfer"
)

// receiveCountAttribute is the SQS system attribute counting deliveries.
const receiveCountAttribute = "ApproximateReceiveCount"

// Replayer drives a recorded transfer to completion.
type Replayer interface {
	Resume(ctx context.Context, tx *models.Transaction) (*transfer.Result, error)
}

// Consumer handles batches of replay messages.
type Consumer struct {
	replayer    Replayer
	maxAttempts int
	logger      *slog.Logger
}

// NewConsumer creates a Consumer. A replay that still fails for insufficient
// funds on its maxAttempts-th delivery is dropped; zero means no cap.
func NewConsumer(replayer Replayer, maxAttempts int, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		replayer:    replayer,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// HandleSQSEvent replays each message and reports the ones to redeliver.
// Messages that can never succeed are dropped: undecodable bodies, IDs the
// ledger has no record of, and transfers whose participant was deleted.
func (c *Consumer) HandleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var response events.SQSEventResponse
	for _, message := range event.Records {
		if c.handle(ctx, message) {
			continue
		}
		response.BatchItemFailures = append(response.BatchItemFailures, events.SQSBatchItemFailure{
			ItemIdentifier: message.MessageId,
		})
	}
	return response, nil
}

// handle returns false when the message should be redelivered.
func (c *Consumer) handle(ctx context.Context, message events.SQSMessage) bool {
	attempt := receiveCount(message)
	log := c.logger.With("message_id", message.MessageId, "attempt", attempt)

	tx, err := scheduler.DecodeReplay(message.Body)
	if err != nil {
		log.Error("dropping undecodable replay message", "error", err)
		return true
	}
	log = log.With("transaction_id", tx.Id)

	_, err = c.replayer.Resume(ctx, tx)
	switch {
	case err == nil:
		log.Info("transfer settled")
		return true
	case errors.Is(err, storage.ErrTransactionNotFound):
		log.Error("dropping replay for unrecorded transaction", "error", err)
		return true
	case errors.Is(err, transfer.ErrParticipantNotFound):
		log.Error("dropping replay for deleted participant", "error", err)
		return true
	case errors.Is(err, transfer.ErrInsufficientFunds) && c.maxAttempts > 0 && attempt >= c.maxAttempts:
		// Left for the reconciler and for support, who have the reference.
		log.Error("giving up on replay, sender still lacks funds", "max_attempts", c.maxAttempts, "error", err)
		return true
	default:
		log.Warn("failed to replay transfer", "error", err)
		return false
	}
}

// receiveCount reads how often SQS has delivered the message. A missing or
// malformed attribute counts as the first delivery.
func receiveCount(message events.SQSMessage) int {
	n, err := strconv.Atoi(message.Attributes[receiveCountAttribute])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
