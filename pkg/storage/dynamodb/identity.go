package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
)

// ResolveByIDNumber reads the ID number guard for the account key.
func (s *Store) ResolveByIDNumber(ctx context.Context, idNumber string) (string, error) {
	key, err := s.resolveIdentity(ctx, identityKey("id_number", idNumber))
	if err != nil {
		return "", fmt.Errorf("ID number %s: %w", idNumber, err)
	}
	return key, nil
}

// ResolveByCardNumber reads the card number guard and loads the account.
func (s *Store) ResolveByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error) {
	key, err := s.resolveIdentity(ctx, identityKey("card_number", cardNumber))
	if err != nil {
		return nil, fmt.Errorf("card number %s: %w", cardNumber, err)
	}
	account, err := s.getAccount(ctx, key, true)
	if err != nil {
		return nil, fmt.Errorf("card number %s: %w", cardNumber, err)
	}
	return account, nil
}

// resolveIdentity reads a guard written by CreateAccount. The read is
// strongly consistent so an account is resolvable as soon as it is created.
func (s *Store) resolveIdentity(ctx context.Context, identity string) (string, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.Identities),
		Key:            map[string]types.AttributeValue{"identity": &types.AttributeValueMemberS{Value: identity}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get identity from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return "", storage.ErrAccountNotFound
	}

	var guard identityGuard
	if err := attributevalue.UnmarshalMap(result.Item, &guard); err != nil {
		return "", fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	return guard.AccountKey, nil
}
