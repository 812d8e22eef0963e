package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
)

// identityGuard reserves an ID number or card number for one account.
type identityGuard struct {
	Identity   string `dynamodbav:"identity"`
	AccountKey string `dynamodbav:"account_key"`
}

// CreateAccount writes the account, its role extension and the identity
// guards in a single TransactWriteItems call, so the account is never left
// without its extension and identifiers stay unique.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account, ext *models.RoleExtension) (*models.Account, error) {
	if !account.Role.Valid() {
		return nil, fmt.Errorf("role %q: %w", account.Role, storage.ErrInvalidRole)
	}

	now := s.clock()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := models.RoleExtension{AccountKey: account.AccountKey, Role: account.Role, CreatedAt: now, UpdatedAt: now}
	if ext != nil {
		stored.Fields = ext.Fields
	}

	accountAV, err := attributevalue.MarshalMap(account)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account: %w", err)
	}
	extAV, err := attributevalue.MarshalMap(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal role extension: %w", err)
	}
	idGuardAV, err := attributevalue.MarshalMap(identityGuard{Identity: identityKey("id_number", account.IDNumber), AccountKey: account.AccountKey})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal id number guard: %w", err)
	}

	items := []types.TransactWriteItem{
		{
			// Operation 1: Create the account record.
			Put: &types.Put{
				TableName:           aws.String(s.Tables.Accounts),
				Item:                accountAV,
				ConditionExpression: aws.String("attribute_not_exists(account_key)"),
			},
		},
		{
			// Operation 2: Create the role extension record.
			Put: &types.Put{
				TableName: aws.String(s.Tables.RoleTable(account.Role)),
				Item:      extAV,
			},
		},
		{
			// Operation 3: Reserve the ID number.
			Put: &types.Put{
				TableName:           aws.String(s.Tables.Identities),
				Item:                idGuardAV,
				ConditionExpression: aws.String("attribute_not_exists(identity)"),
			},
		},
	}

	if account.CardNumber != "" {
		cardGuardAV, err := attributevalue.MarshalMap(identityGuard{Identity: identityKey("card_number", account.CardNumber), AccountKey: account.AccountKey})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal card number guard: %w", err)
		}
		// Operation 4: Reserve the card number.
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Tables.Identities),
				Item:                cardGuardAV,
				ConditionExpression: aws.String("attribute_not_exists(identity)"),
			},
		})
	}

	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		reasons := cancellationReasons(err)
		switch {
		case conditionFailedAt(reasons, 0):
			return nil, storage.ErrAccountExists
		case conditionFailedAt(reasons, 2):
			return nil, storage.ErrDuplicateIDNumber
		case conditionFailedAt(reasons, 3):
			return nil, storage.ErrDuplicateCardNumber
		}
		return nil, fmt.Errorf("failed to create account in DynamoDB: %w", err)
	}

	return account, nil
}

// GetAccount retrieves an account from DynamoDB by its internal key.
func (s *Store) GetAccount(ctx context.Context, accountKey string) (*models.Account, error) {
	return s.getAccount(ctx, accountKey, false)
}

func (s *Store) getAccount(ctx context.Context, accountKey string, consistent bool) (*models.Account, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"account_key": accountKey})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account key: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.Accounts),
		Key:            key,
		ConsistentRead: aws.Bool(consistent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, storage.ErrAccountNotFound)
	}

	var account models.Account
	if err := attributevalue.UnmarshalMap(result.Item, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return &account, nil
}

// GetRoleExtension retrieves the role extension of an account.
func (s *Store) GetRoleExtension(ctx context.Context, accountKey string, role models.Role) (*models.RoleExtension, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"account_key": accountKey})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account key: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.RoleTable(role)),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get role extension from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("%s extension for account %s: %w", role, accountKey, storage.ErrAccountNotFound)
	}

	var ext models.RoleExtension
	if err := attributevalue.UnmarshalMap(result.Item, &ext); err != nil {
		return nil, fmt.Errorf("failed to unmarshal role extension: %w", err)
	}

	return &ext, nil
}

// UpdateProfile writes only the supplied fields plus a refreshed updated_at.
func (s *Store) UpdateProfile(ctx context.Context, accountKey string, update models.ProfileUpdate) (*models.Account, error) {
	names := map[string]string{"#updated_at": "updated_at"}
	values := map[string]types.AttributeValue{}
	var sets []string

	set := func(attr string, v any) error {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", attr, err)
		}
		names["#"+attr] = attr
		values[":"+attr] = av
		sets = append(sets, fmt.Sprintf("#%s = :%s", attr, attr))
		return nil
	}

	fields := []struct {
		attr  string
		value any
		ok    bool
	}{
		{"first_name", update.FirstName, update.FirstName != nil},
		{"middle_name", update.MiddleName, update.MiddleName != nil},
		{"last_name", update.LastName, update.LastName != nil},
		{"mobile_number", update.MobileNumber, update.MobileNumber != nil},
		{"address", update.Address, update.Address != nil},
		{"disabled", update.Disabled, update.Disabled != nil},
		{"pin_hash", update.PINHash, update.PINHash != nil},
	}
	for _, f := range fields {
		if !f.ok {
			continue
		}
		if err := set(f.attr, f.value); err != nil {
			return nil, err
		}
	}

	nowAV, err := attributevalue.Marshal(s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp for profile update: %w", err)
	}
	values[":now"] = nowAV
	sets = append(sets, "#updated_at = :now")

	result, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.Tables.Accounts),
		Key:                       map[string]types.AttributeValue{"account_key": &types.AttributeValueMemberS{Value: accountKey}},
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(account_key)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return nil, fmt.Errorf("account %s: %w", accountKey, storage.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to update account in DynamoDB: %w", err)
	}

	var account models.Account
	if err := attributevalue.UnmarshalMap(result.Attributes, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated account: %w", err)
	}

	return &account, nil
}

// fundsUpdate builds the atomic ADD update applied to an account's balance.
func (s *Store) fundsUpdate(adj models.FundsAdjustment) (*types.Update, error) {
	nowAV, err := attributevalue.Marshal(s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp for funds adjustment: %w", err)
	}

	conditions := []string{"attribute_exists(account_key)"}
	values := map[string]types.AttributeValue{
		":delta": &types.AttributeValueMemberN{Value: strconv.FormatInt(adj.Delta, 10)},
		":inc":   &types.AttributeValueMemberN{Value: "1"},
		":now":   nowAV,
	}
	if adj.Delta < 0 {
		conditions = append(conditions, "funds >= :floor")
		values[":floor"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(-adj.Delta, 10)}
	}
	if adj.ExpectedUpdatedAt != nil {
		expectedAV, err := attributevalue.Marshal(adj.ExpectedUpdatedAt.UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal expected timestamp: %w", err)
		}
		conditions = append(conditions, "updated_at = :expected")
		values[":expected"] = expectedAV
	}

	return &types.Update{
		TableName:                           aws.String(s.Tables.Accounts),
		Key:                                 map[string]types.AttributeValue{"account_key": &types.AttributeValueMemberS{Value: adj.AccountKey}},
		UpdateExpression:                    aws.String("ADD funds :delta, transaction_count :inc SET updated_at = :now"),
		ConditionExpression:                 aws.String(strings.Join(conditions, " AND ")),
		ExpressionAttributeValues:           values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}, nil
}

// fundsConditionError explains why the funds update condition failed from
// the item as it was at the time of the check.
func fundsConditionError(adj models.FundsAdjustment, old map[string]types.AttributeValue) error {
	if len(old) == 0 {
		return fmt.Errorf("account %s: %w", adj.AccountKey, storage.ErrAccountNotFound)
	}
	var account models.Account
	if err := attributevalue.UnmarshalMap(old, &account); err == nil && adj.ExpectedUpdatedAt != nil && !account.UpdatedAt.Equal(*adj.ExpectedUpdatedAt) {
		return storage.ErrStaleAccount
	}
	return storage.ErrInvalidDelta
}

// AdjustFunds atomically applies funds += delta, transaction_count += 1 and
// updated_at = now. With a TransactionID the update is paired with a
// settlement marker in one TransactWriteItems call so that a replayed leg is
// rejected with ErrAlreadySettled instead of being applied twice.
func (s *Store) AdjustFunds(ctx context.Context, adj models.FundsAdjustment) (int64, error) {
	update, err := s.fundsUpdate(adj)
	if err != nil {
		return 0, err
	}

	if adj.TransactionID == "" {
		result, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                           update.TableName,
			Key:                                 update.Key,
			UpdateExpression:                    update.UpdateExpression,
			ConditionExpression:                 update.ConditionExpression,
			ExpressionAttributeValues:           update.ExpressionAttributeValues,
			ReturnValues:                        types.ReturnValueUpdatedNew,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		if err != nil {
			var condCheckFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condCheckFailed) {
				return 0, fundsConditionError(adj, condCheckFailed.Item)
			}
			return 0, fmt.Errorf("failed to adjust funds in DynamoDB: %w", err)
		}

		var updated struct {
			Funds int64 `dynamodbav:"funds"`
		}
		if err := attributevalue.UnmarshalMap(result.Attributes, &updated); err != nil {
			return 0, fmt.Errorf("failed to unmarshal updated funds: %w", err)
		}
		return updated.Funds, nil
	}

	markerAV, err := attributevalue.MarshalMap(models.SettlementMarker{
		Id:            models.SettlementID(adj.TransactionID, adj.Leg),
		TransactionID: adj.TransactionID,
		AccountKey:    adj.AccountKey,
		Leg:           adj.Leg,
		Delta:         adj.Delta,
		SettledAt:     s.clock(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal settlement marker: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Apply the delta to the account.
				Update: update,
			},
			{
				// Operation 2: Record the settlement leg.
				Put: &types.Put{
					TableName:           aws.String(s.Tables.Settlements),
					Item:                markerAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		reasons := cancellationReasons(err)
		switch {
		case conditionFailedAt(reasons, 1):
			return 0, storage.ErrAlreadySettled
		case conditionFailedAt(reasons, 0):
			return 0, fundsConditionError(adj, reasons[0].Item)
		}
		return 0, fmt.Errorf("failed to execute settlement transaction: %w", err)
	}

	account, err := s.getAccount(ctx, adj.AccountKey, true)
	if err != nil {
		return 0, fmt.Errorf("funds adjusted but failed to read balance: %w", err)
	}
	return account.Funds, nil
}

// DeleteAccount removes the account, its role extension and its identity
// guards. Transactions and reference rows are left untouched.
func (s *Store) DeleteAccount(ctx context.Context, accountKey string) error {
	account, err := s.getAccount(ctx, accountKey, true)
	if err != nil {
		return err
	}

	keyAV := map[string]types.AttributeValue{"account_key": &types.AttributeValueMemberS{Value: accountKey}}
	items := []types.TransactWriteItem{
		{
			Delete: &types.Delete{
				TableName:           aws.String(s.Tables.Accounts),
				Key:                 keyAV,
				ConditionExpression: aws.String("attribute_exists(account_key)"),
			},
		},
		{
			Delete: &types.Delete{
				TableName: aws.String(s.Tables.RoleTable(account.Role)),
				Key:       keyAV,
			},
		},
		{
			Delete: &types.Delete{
				TableName: aws.String(s.Tables.Identities),
				Key:       map[string]types.AttributeValue{"identity": &types.AttributeValueMemberS{Value: identityKey("id_number", account.IDNumber)}},
			},
		},
	}
	if account.CardNumber != "" {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.Tables.Identities),
				Key:       map[string]types.AttributeValue{"identity": &types.AttributeValueMemberS{Value: identityKey("card_number", account.CardNumber)}},
			},
		})
	}

	if _, err := s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if conditionFailedAt(cancellationReasons(err), 0) {
			return fmt.Errorf("account %s: %w", accountKey, storage.ErrAccountNotFound)
		}
		return fmt.Errorf("failed to delete account from DynamoDB: %w", err)
	}

	return nil
}
