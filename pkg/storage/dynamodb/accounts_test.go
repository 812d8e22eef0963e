package dynamodb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/chris/campus-ledger/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testTables = Tables{
	Accounts:     "accounts",
	Identities:   "identities",
	Transactions: "transactions",
	References:   "references",
	Settlements:  "settlements",
	RolePrefix:   "campus-",
}

func canceled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, code := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(code)}
	}
	return &types.TransactionCanceledException{CancellationReasons: reasons}
}

func TestCreateAccount(t *testing.T) {
	newStudent := func() *models.Account {
		return &models.Account{AccountKey: "key-1", IDNumber: "2020-0001", CardNumber: "card-1", Role: models.RoleStudent}
	}
	ext := &models.RoleExtension{Fields: map[string]string{"course": "BSCS", "year": "3"}}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 4 &&
				aws.ToString(in.TransactItems[0].Put.TableName) == "accounts" &&
				aws.ToString(in.TransactItems[1].Put.TableName) == "campus-student" &&
				aws.ToString(in.TransactItems[2].Put.TableName) == "identities"
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		result, err := store.CreateAccount(context.Background(), newStudent(), ext)

		assert.NoError(t, err)
		assert.False(t, result.CreatedAt.IsZero())
		assert.Equal(t, result.CreatedAt, result.UpdatedAt)
		mockClient.AssertExpectations(t)
	})

	t.Run("No Card Number", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 3
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		acc := newStudent()
		acc.CardNumber = ""
		_, err := store.CreateAccount(context.Background(), acc, ext)

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Duplicate ID Number", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, canceled("None", "None", conditionalCheckFailed, "None"))

		_, err := store.CreateAccount(context.Background(), newStudent(), ext)

		assert.ErrorIs(t, err, storage.ErrDuplicateIDNumber)
		mockClient.AssertExpectations(t)
	})

	t.Run("Duplicate Card Number", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, canceled("None", "None", "None", conditionalCheckFailed))

		_, err := store.CreateAccount(context.Background(), newStudent(), ext)

		assert.ErrorIs(t, err, storage.ErrDuplicateCardNumber)
		mockClient.AssertExpectations(t)
	})

	t.Run("Invalid Role", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		acc := newStudent()
		acc.Role = "janitor"
		_, err := store.CreateAccount(context.Background(), acc, ext)

		assert.ErrorIs(t, err, storage.ErrInvalidRole)
		mockClient.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		_, err := store.CreateAccount(context.Background(), newStudent(), ext)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account in DynamoDB")
		mockClient.AssertExpectations(t)
	})
}

func TestGetAccount(t *testing.T) {
	account := &models.Account{AccountKey: "key-1", IDNumber: "2020-0001", Role: models.RoleStudent, Funds: 250}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		av, _ := attributevalue.MarshalMap(account)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: av}, nil)

		result, err := store.GetAccount(context.Background(), "key-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(250), result.Funds)
		assert.Nil(t, result.PINHash)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: nil}, nil)

		_, err := store.GetAccount(context.Background(), "key-1")

		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(nil, errors.New("get item failed"))

		_, err := store.GetAccount(context.Background(), "key-1")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get account from DynamoDB")
		mockClient.AssertExpectations(t)
	})
}

func TestGetRoleExtension(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	store := New(mockClient, testTables)

	ext := models.RoleExtension{AccountKey: "key-1", Role: models.RoleFaculty, Fields: map[string]string{"department": "Physics"}}
	av, _ := attributevalue.MarshalMap(ext)
	mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToString(in.TableName) == "campus-faculty"
	})).Return(&dynamodb.GetItemOutput{Item: av}, nil)

	result, err := store.GetRoleExtension(context.Background(), "key-1", models.RoleFaculty)

	assert.NoError(t, err)
	assert.Equal(t, "Physics", result.Fields["department"])
	mockClient.AssertExpectations(t)
}

func TestUpdateProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		updated := models.Account{AccountKey: "key-1", FirstName: "Ana", Disabled: true}
		av, _ := attributevalue.MarshalMap(updated)
		mockClient.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			expr := aws.ToString(in.UpdateExpression)
			return strings.Contains(expr, "#first_name = :first_name") &&
				strings.Contains(expr, "#disabled = :disabled") &&
				!strings.Contains(expr, "last_name") &&
				strings.Contains(expr, "#updated_at = :now")
		})).Return(&dynamodb.UpdateItemOutput{Attributes: av}, nil)

		name := "Ana"
		disabled := true
		result, err := store.UpdateProfile(context.Background(), "key-1", models.ProfileUpdate{FirstName: &name, Disabled: &disabled})

		assert.NoError(t, err)
		assert.Equal(t, "Ana", result.FirstName)
		assert.True(t, result.Disabled)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		name := "Ana"
		_, err := store.UpdateProfile(context.Background(), "key-1", models.ProfileUpdate{FirstName: &name})

		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
		mockClient.AssertExpectations(t)
	})
}

func TestAdjustFunds(t *testing.T) {
	t.Run("Credit", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return aws.ToString(in.ConditionExpression) == "attribute_exists(account_key)" &&
				strings.HasPrefix(aws.ToString(in.UpdateExpression), "ADD funds :delta")
		})).Return(&dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
			"funds": &types.AttributeValueMemberN{Value: "150"},
		}}, nil)

		balance, err := store.AdjustFunds(context.Background(), models.FundsAdjustment{AccountKey: "key-1", Delta: 50})

		assert.NoError(t, err)
		assert.Equal(t, int64(150), balance)
		mockClient.AssertExpectations(t)
	})

	t.Run("Debit Below Zero", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		old, _ := attributevalue.MarshalMap(models.Account{AccountKey: "key-1", Funds: 10})
		mockClient.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return strings.Contains(aws.ToString(in.ConditionExpression), "funds >= :floor")
		})).Return(nil, &types.ConditionalCheckFailedException{Item: old})

		_, err := store.AdjustFunds(context.Background(), models.FundsAdjustment{AccountKey: "key-1", Delta: -20})

		assert.ErrorIs(t, err, storage.ErrInvalidDelta)
		mockClient.AssertExpectations(t)
	})

	t.Run("Missing Account", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := store.AdjustFunds(context.Background(), models.FundsAdjustment{AccountKey: "key-1", Delta: 5})

		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
		mockClient.AssertExpectations(t)
	})

	t.Run("Stale Account", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		expected := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		old, _ := attributevalue.MarshalMap(models.Account{AccountKey: "key-1", Funds: 100, UpdatedAt: expected.Add(time.Minute)})
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{Item: old})

		_, err := store.AdjustFunds(context.Background(), models.FundsAdjustment{AccountKey: "key-1", Delta: 5, ExpectedUpdatedAt: &expected})

		assert.ErrorIs(t, err, storage.ErrStaleAccount)
		mockClient.AssertExpectations(t)
	})

	t.Run("Settlement Leg", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 2 &&
				in.TransactItems[0].Update != nil &&
				aws.ToString(in.TransactItems[1].Put.TableName) == "settlements"
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		av, _ := attributevalue.MarshalMap(models.Account{AccountKey: "key-1", Funds: 70})
		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return aws.ToBool(in.ConsistentRead)
		})).Return(&dynamodb.GetItemOutput{Item: av}, nil)

		balance, err := store.AdjustFunds(context.Background(), models.FundsAdjustment{
			AccountKey: "key-1", Delta: -30, TransactionID: "tx-1", Leg: models.LegDebit,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(70), balance)
		mockClient.AssertExpectations(t)
	})

	t.Run("Already Settled", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, canceled("None", conditionalCheckFailed))

		_, err := store.AdjustFunds(context.Background(), models.FundsAdjustment{
			AccountKey: "key-1", Delta: 30, TransactionID: "tx-1", Leg: models.LegCredit,
		})

		assert.ErrorIs(t, err, storage.ErrAlreadySettled)
		mockClient.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
	})
}

func TestDeleteAccount(t *testing.T) {
	account := models.Account{AccountKey: "key-1", IDNumber: "2020-0001", CardNumber: "card-1", Role: models.RoleCashier}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		av, _ := attributevalue.MarshalMap(account)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: av}, nil)
		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 4 &&
				aws.ToString(in.TransactItems[1].Delete.TableName) == "campus-cashier"
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		err := store.DeleteAccount(context.Background(), "key-1")

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		err := store.DeleteAccount(context.Background(), "key-1")

		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
		mockClient.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
	})
}
