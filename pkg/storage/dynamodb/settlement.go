package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/campus-ledger/pkg/models"
)

// IsSettled reports whether a settlement marker exists for the leg.
func (s *Store) IsSettled(ctx context.Context, txID string, leg models.Leg) (bool, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.Settlements),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: models.SettlementID(txID, leg)}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to get settlement marker from DynamoDB: %w", err)
	}
	return result.Item != nil, nil
}
