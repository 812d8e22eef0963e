package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/scheduler/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScheduleReplay(t *testing.T) {
	tx := &models.Transaction{Id: "tx-1", Type: models.PAYMENT, Amount: 200, Sender: "2020-0001", Receiver: "cash-1"}

	t.Run("Success", func(t *testing.T) {
		mockClient := mocks.NewSQSAPI(t)
		s := NewSQSScheduler(mockClient, "https://queue")

		var body string
		mockClient.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
			body = aws.ToString(in.MessageBody)
			return aws.ToString(in.QueueUrl) == "https://queue" && in.DelaySeconds == 30
		})).Return(&sqs.SendMessageOutput{}, nil)

		err := s.ScheduleReplay(context.Background(), tx, 30*time.Second)
		require.NoError(t, err)

		decoded, err := DecodeReplay(body)
		require.NoError(t, err)
		assert.Equal(t, tx.Id, decoded.Id)
		assert.Equal(t, tx.Amount, decoded.Amount)
	})

	t.Run("Delay Clamped", func(t *testing.T) {
		mockClient := mocks.NewSQSAPI(t)
		s := NewSQSScheduler(mockClient, "https://queue")

		mockClient.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
			return in.DelaySeconds == 900
		})).Return(&sqs.SendMessageOutput{}, nil)

		assert.NoError(t, s.ScheduleReplay(context.Background(), tx, time.Hour))
	})

	t.Run("Send Fails", func(t *testing.T) {
		mockClient := mocks.NewSQSAPI(t)
		s := NewSQSScheduler(mockClient, "https://queue")

		mockClient.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("queue unavailable"))

		err := s.ScheduleReplay(context.Background(), tx, 0)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send message to SQS")
	})
}

func TestDecodeReplay(t *testing.T) {
	_, err := DecodeReplay("{not json")
	assert.Error(t, err)

	_, err = DecodeReplay(`{"amount": 5}`)
	assert.Error(t, err)
}
