package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/google/uuid"
)

// batchGetLimit is the maximum number of keys BatchGetItem accepts per call.
const batchGetLimit = 100

// maxUnprocessedRetries bounds how often unprocessed keys are re-requested.
const maxUnprocessedRetries = 5

// Append stores a new transaction with a server-assigned ID and timestamp.
func (s *Store) Append(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if !tx.Type.Valid() || tx.Amount <= 0 {
		return nil, storage.ErrInvalidTransaction
	}

	tx.Id = uuid.New().String()
	tx.CreatedAt = s.clock()
	tx.LedgerPK = ledgerPK

	av, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.Transactions),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put transaction in DynamoDB: %w", err)
	}

	return tx, nil
}

// GetTransaction retrieves a transaction by its ID.
func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.Transactions),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: txID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, storage.ErrTransactionNotFound)
	}

	var tx models.Transaction
	if err := attributevalue.UnmarshalMap(result.Item, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}

	return &tx, nil
}

// GetMany fetches transactions in chunks of batchGetLimit keys. IDs that do
// not exist are omitted from the result.
func (s *Store) GetMany(ctx context.Context, txIDs []string) ([]models.Transaction, error) {
	seen := make(map[string]bool, len(txIDs))
	keys := make([]map[string]types.AttributeValue, 0, len(txIDs))
	for _, id := range txIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}})
	}

	transactions := make([]models.Transaction, 0, len(keys))
	for start := 0; start < len(keys); start += batchGetLimit {
		end := min(start+batchGetLimit, len(keys))
		items, err := s.batchGet(ctx, keys[start:end])
		if err != nil {
			return nil, err
		}

		var chunk []models.Transaction
		if err := attributevalue.UnmarshalListOfMaps(items, &chunk); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
		}
		transactions = append(transactions, chunk...)
	}

	return transactions, nil
}

func (s *Store) batchGet(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	table := s.Tables.Transactions
	request := map[string]types.KeysAndAttributes{table: {Keys: keys}}

	var items []map[string]types.AttributeValue
	for attempt := 0; len(request) > 0; attempt++ {
		if attempt > maxUnprocessedRetries {
			return nil, errors.New("failed to batch get transactions: unprocessed keys remain after retries")
		}
		if attempt > 0 {
			// Unprocessed keys mean the table is throttling; back off exponentially.
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to batch get transactions: %w", ctx.Err())
			case <-time.After(s.retryBase << (attempt - 1)):
			}
		}

		result, err := s.Client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return nil, fmt.Errorf("failed to batch get transactions: %w", err)
		}

		items = append(items, result.Responses[table]...)
		request = result.UnprocessedKeys
	}

	return items, nil
}

// ListRecorded returns transactions with from <= created_at < to, oldest
// first, following pagination of the ledger GSI.
func (s *Store) ListRecorded(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	fromAV, err := attributevalue.Marshal(from.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal window start: %w", err)
	}
	toAV, err := attributevalue.Marshal(to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal window end: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Transactions),
		IndexName:              aws.String(ledgerIndex),
		KeyConditionExpression: aws.String("ledger_pk = :pk AND created_at BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: ledgerPK},
			":from": fromAV,
			":to":   toAV,
		},
		ScanIndexForward: aws.Bool(true),
	}

	var transactions []models.Transaction
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for recorded transactions: %w", err)
		}

		var page []models.Transaction
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recorded transactions: %w", err)
		}
		for _, tx := range page {
			// BETWEEN is inclusive on both ends.
			if tx.CreatedAt.Before(to) {
				transactions = append(transactions, tx)
			}
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return transactions, nil
}
