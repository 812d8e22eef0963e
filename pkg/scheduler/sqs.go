package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/chris/campus-ledger/pkg/models"
)

// maxDelay is the longest DelaySeconds SQS accepts.
const maxDelay = 15 * time.Minute

// SQSAPI is the subset of the SQS client used by the SQSScheduler.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSScheduler implements the Scheduler interface using AWS SQS.
type SQSScheduler struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSScheduler creates a new SQSScheduler.
func NewSQSScheduler(client SQSAPI, queueURL string) *SQSScheduler {
	return &SQSScheduler{
		Client:   client,
		QueueURL: queueURL,
	}
}

// Make sure we conform to the interface
var _ Scheduler = (*SQSScheduler)(nil)

// ScheduleReplay sends the transaction to an SQS queue. The delay is clamped
// to what SQS supports.
func (s *SQSScheduler) ScheduleReplay(ctx context.Context, tx *models.Transaction, delay time.Duration) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction for SQS: %w", err)
	}

	delay = min(max(delay, 0), maxDelay)

	_, err = s.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(s.QueueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: int32(delay / time.Second),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"transaction_type": {DataType: aws.String("String"), StringValue: aws.String(string(tx.Type))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}

// DecodeReplay parses a message body produced by ScheduleReplay.
func DecodeReplay(body string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := json.Unmarshal([]byte(body), &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction from SQS message: %w", err)
	}
	if tx.Id == "" {
		return nil, fmt.Errorf("SQS message carries no transaction id")
	}
	return &tx, nil
}
