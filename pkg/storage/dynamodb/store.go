package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Tables names the DynamoDB tables backing the ledger.
type Tables struct {
	// Accounts is keyed by account_key.
	Accounts string
	// Identities holds uniqueness guards keyed by identity ("id_number#..." / "card_number#...").
	// Resolution reads them consistently.
	Identities string
	// Transactions is keyed by id, with a GSI on (ledger_pk, created_at).
	Transactions string
	// References is keyed by (account_key, reference_id).
	References string
	// Settlements is keyed by id ("<transaction id>#<leg>").
	Settlements string
	// RolePrefix is prepended to a role name to get its extension table.
	RolePrefix string
}

// RoleTable returns the extension table for a role.
func (t Tables) RoleTable(role models.Role) string {
	return t.RolePrefix + string(role)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client DynamoDBAPI
	Tables Tables
	now    func() time.Time

	// retryBase is the first backoff before re-requesting unprocessed keys.
	retryBase time.Duration
}

// New creates a new Store.
func New(client DynamoDBAPI, tables Tables) *Store {
	return &Store{
		Client:    client,
		Tables:    tables,
		now:       time.Now,
		retryBase: defaultRetryBase,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

const (
	ledgerIndex = "ledger_pk-created_at-index"
	ledgerPK    = "TRANSACTIONS"

	conditionalCheckFailed = "ConditionalCheckFailed"

	defaultRetryBase = 50 * time.Millisecond
)

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// cancellationReasons returns the per-item reasons of a cancelled
// TransactWriteItems call, or nil if err is something else.
func cancellationReasons(err error) []types.CancellationReason {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return tce.CancellationReasons
	}
	return nil
}

func conditionFailedAt(reasons []types.CancellationReason, i int) bool {
	return i < len(reasons) && aws.ToString(reasons[i].Code) == conditionalCheckFailed
}

func identityKey(kind, value string) string {
	return kind + "#" + value
}
