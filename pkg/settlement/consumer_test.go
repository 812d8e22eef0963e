package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/settlement/mocks"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/chris/campus-ledger/pkg/storage/memory"
	"github.com/chris/campus-ledger/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, id string, tx *models.Transaction, attempt int) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(tx)
	require.NoError(t, err)
	return events.SQSMessage{
		MessageId:  id,
		Body:       string(body),
		Attributes: map[string]string{receiveCountAttribute: strconv.Itoa(attempt)},
	}
}

func failedIDs(response events.SQSEventResponse) []string {
	ids := make([]string, 0, len(response.BatchItemFailures))
	for _, f := range response.BatchItemFailures {
		ids = append(ids, f.ItemIdentifier)
	}
	return ids
}

func TestHandleSQSEvent(t *testing.T) {
	ctx := context.Background()
	tx := &models.Transaction{Id: "tx-1", Type: models.PAYMENT, Amount: 200, Sender: "2020-0001", Receiver: "2020-0002"}
	byID := mock.MatchedBy(func(in *models.Transaction) bool { return in.Id == "tx-1" })

	t.Run("Success", func(t *testing.T) {
		replayer := mocks.NewReplayer(t)
		replayer.On("Resume", mock.Anything, byID).Return(&transfer.Result{TransactionID: "tx-1", Stage: transfer.StageSettled}, nil).Once()

		response, err := NewConsumer(replayer, 3, nil).HandleSQSEvent(ctx, events.SQSEvent{Records: []events.SQSMessage{message(t, "m-1", tx, 1)}})

		require.NoError(t, err)
		assert.Empty(t, response.BatchItemFailures)
	})

	t.Run("Undecodable Message Dropped", func(t *testing.T) {
		replayer := mocks.NewReplayer(t)

		response, err := NewConsumer(replayer, 3, nil).HandleSQSEvent(ctx, events.SQSEvent{Records: []events.SQSMessage{{MessageId: "m-1", Body: "not json"}}})

		require.NoError(t, err)
		assert.Empty(t, response.BatchItemFailures)
		replayer.AssertNotCalled(t, "Resume", mock.Anything, mock.Anything)
	})

	t.Run("Permanent Failures Dropped", func(t *testing.T) {
		for name, cause := range map[string]error{
			"Unrecorded":          fmt.Errorf("transaction tx-1: %w", storage.ErrTransactionNotFound),
			"Deleted Participant": &transfer.IncompleteError{TransactionID: "tx-1", Stage: transfer.StageRecorded, Err: transfer.ErrParticipantNotFound},
		} {
			t.Run(name, func(t *testing.T) {
				replayer := mocks.NewReplayer(t)
				replayer.On("Resume", mock.Anything, byID).Return(nil, cause).Once()

				response, err := NewConsumer(replayer, 3, nil).HandleSQSEvent(ctx, events.SQSEvent{Records: []events.SQSMessage{message(t, "m-1", tx, 1)}})

				require.NoError(t, err)
				assert.Empty(t, response.BatchItemFailures)
			})
		}
	})

	t.Run("Transient Failure Redelivered", func(t *testing.T) {
		replayer := mocks.NewReplayer(t)
		replayer.On("Resume", mock.Anything, byID).Return(nil, &transfer.IncompleteError{TransactionID: "tx-1", Stage: transfer.StageIndexed, Err: errors.New("connection reset")}).Once()

		response, err := NewConsumer(replayer, 3, nil).HandleSQSEvent(ctx, events.SQSEvent{Records: []events.SQSMessage{message(t, "m-1", tx, 7)}})

		require.NoError(t, err)
		assert.Equal(t, []string{"m-1"}, failedIDs(response))
	})

	t.Run("Insufficient Funds Capped", func(t *testing.T) {
		short := &transfer.IncompleteError{TransactionID: "tx-1", Stage: transfer.StageIndexed, Err: fmt.Errorf("failed to settle debit leg: %w", transfer.ErrInsufficientFunds)}
		replayer := mocks.NewReplayer(t)
		replayer.On("Resume", mock.Anything, byID).Return(nil, short).Times(3)

		consumer := NewConsumer(replayer, 3, nil)
		event := events.SQSEvent{Records: []events.SQSMessage{
			message(t, "first", tx, 1),
			message(t, "below-cap", tx, 2),
			message(t, "at-cap", tx, 3),
		}}

		response, err := consumer.HandleSQSEvent(ctx, event)

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "below-cap"}, failedIDs(response))
	})

	t.Run("No Cap Keeps Redelivering", func(t *testing.T) {
		short := &transfer.IncompleteError{TransactionID: "tx-1", Stage: transfer.StageIndexed, Err: transfer.ErrInsufficientFunds}
		replayer := mocks.NewReplayer(t)
		replayer.On("Resume", mock.Anything, byID).Return(nil, short).Once()

		response, err := NewConsumer(replayer, 0, nil).HandleSQSEvent(ctx, events.SQSEvent{Records: []events.SQSMessage{message(t, "m-1", tx, 50)}})

		require.NoError(t, err)
		assert.Equal(t, []string{"m-1"}, failedIDs(response))
	})
}

func TestHandleSQSEventForgedMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, acc := range []models.Account{
		{AccountKey: "a", IDNumber: "2020-0001", Role: models.RoleStudent},
		{AccountKey: "b", IDNumber: "2020-0002", Role: models.RoleStudent},
	} {
		_, err := store.CreateAccount(ctx, &acc, nil)
		require.NoError(t, err)
	}
	_, err := store.AdjustFunds(ctx, models.FundsAdjustment{AccountKey: "a", Delta: 500})
	require.NoError(t, err)

	consumer := NewConsumer(transfer.NewService(store, nil), 3, nil)
	forged := &models.Transaction{Id: "never-recorded", Type: models.PAYMENT, Amount: 400, Sender: "2020-0001", Receiver: "2020-0002"}

	response, err := consumer.HandleSQSEvent(ctx, events.SQSEvent{Records: []events.SQSMessage{message(t, "m-1", forged, 1)}})

	require.NoError(t, err)
	assert.Empty(t, response.BatchItemFailures)

	a, _ := store.GetAccount(ctx, "a")
	b, _ := store.GetAccount(ctx, "b")
	assert.Equal(t, int64(500), a.Funds)
	assert.Equal(t, int64(0), b.Funds)
	refs, _ := store.ListReferences(ctx, "b", 0)
	assert.Empty(t, refs)
}

func TestReceiveCount(t *testing.T) {
	assert.Equal(t, 1, receiveCount(events.SQSMessage{}))
	assert.Equal(t, 1, receiveCount(events.SQSMessage{Attributes: map[string]string{receiveCountAttribute: "x"}}))
	assert.Equal(t, 4, receiveCount(events.SQSMessage{Attributes: map[string]string{receiveCountAttribute: "4"}}))
}
