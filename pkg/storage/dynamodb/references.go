package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
)

// AddReference writes a reference row under the account. A second row for
// the same transaction and direction fails with ErrDuplicateReference.
func (s *Store) AddReference(ctx context.Context, accountKey, txID string, dir models.Direction) error {
	ref := models.TransactionReference{
		AccountKey:    accountKey,
		ReferenceID:   models.ReferenceID(txID, dir),
		Type:          dir,
		TransactionID: txID,
		CreatedAt:     s.clock(),
	}

	av, err := attributevalue.MarshalMap(ref)
	if err != nil {
		return fmt.Errorf("failed to marshal reference: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.References),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(reference_id)"),
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return storage.ErrDuplicateReference
		}
		return fmt.Errorf("failed to put reference in DynamoDB: %w", err)
	}

	return nil
}

// ListReferences returns up to limit transaction IDs referenced by the
// account. A limit of zero or less returns every reference.
func (s *Store) ListReferences(ctx context.Context, accountKey string, limit int32) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.References),
		KeyConditionExpression: aws.String("account_key = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: accountKey},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	var ids []string
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for references: %w", err)
		}

		var refs []models.TransactionReference
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &refs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal references: %w", err)
		}
		for _, ref := range refs {
			ids = append(ids, ref.TransactionID)
		}

		if len(result.LastEvaluatedKey) == 0 || (limit > 0 && len(ids) >= int(limit)) {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
		if limit > 0 {
			input.Limit = aws.Int32(limit - int32(len(ids)))
		}
	}

	return ids, nil
}

// HasReference reports whether the account holds a row for txID in direction dir.
func (s *Store) HasReference(ctx context.Context, accountKey, txID string, dir models.Direction) (bool, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.References),
		Key: map[string]types.AttributeValue{
			"account_key":  &types.AttributeValueMemberS{Value: accountKey},
			"reference_id": &types.AttributeValueMemberS{Value: models.ReferenceID(txID, dir)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to get reference from DynamoDB: %w", err)
	}
	return result.Item != nil, nil
}
