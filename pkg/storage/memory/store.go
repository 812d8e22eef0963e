// Package memory is an in-process implementation of storage.Storage. Every
// operation holds a single mutex, which gives each call the same
// per-document atomicity the DynamoDB store provides.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage in memory.
type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	accounts     map[string]models.Account
	extensions   map[models.Role]map[string]models.RoleExtension
	idNumbers    map[string]string
	cardNumbers  map[string]string
	transactions map[string]models.Transaction
	references   map[string][]models.TransactionReference
	settlements  map[string]models.SettlementMarker
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:          time.Now,
		accounts:     map[string]models.Account{},
		extensions:   map[models.Role]map[string]models.RoleExtension{},
		idNumbers:    map[string]string{},
		cardNumbers:  map[string]string{},
		transactions: map[string]models.Transaction{},
		references:   map[string][]models.TransactionReference{},
		settlements:  map[string]models.SettlementMarker{},
	}
}

// WithClock replaces the time source used for server-assigned timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ResolveByIDNumber returns the account key holding idNumber.
func (s *Store) ResolveByIDNumber(ctx context.Context, idNumber string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.idNumbers[idNumber]
	if !ok {
		return "", fmt.Errorf("ID number %s: %w", idNumber, storage.ErrAccountNotFound)
	}
	return key, nil
}

// ResolveByCardNumber returns the account holding cardNumber.
func (s *Store) ResolveByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.cardNumbers[cardNumber]
	if !ok {
		return nil, fmt.Errorf("card number %s: %w", cardNumber, storage.ErrAccountNotFound)
	}
	acc := s.accounts[key]
	return &acc, nil
}

// GetAccount retrieves an account by its internal key.
func (s *Store) GetAccount(ctx context.Context, accountKey string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountKey]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountKey, storage.ErrAccountNotFound)
	}
	return &acc, nil
}

// GetRoleExtension retrieves the role extension of an account.
func (s *Store) GetRoleExtension(ctx context.Context, accountKey string, role models.Role) (*models.RoleExtension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext, ok := s.extensions[role][accountKey]
	if !ok {
		return nil, fmt.Errorf("%s extension for account %s: %w", role, accountKey, storage.ErrAccountNotFound)
	}
	return &ext, nil
}

// CreateAccount writes the account and its role extension together.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account, ext *models.RoleExtension) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !account.Role.Valid() {
		return nil, fmt.Errorf("role %q: %w", account.Role, storage.ErrInvalidRole)
	}
	if _, ok := s.accounts[account.AccountKey]; ok {
		return nil, storage.ErrAccountExists
	}
	if _, ok := s.idNumbers[account.IDNumber]; ok {
		return nil, storage.ErrDuplicateIDNumber
	}
	if account.CardNumber != "" {
		if _, ok := s.cardNumbers[account.CardNumber]; ok {
			return nil, storage.ErrDuplicateCardNumber
		}
	}

	now := s.now()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.AccountKey] = *account
	s.idNumbers[account.IDNumber] = account.AccountKey
	if account.CardNumber != "" {
		s.cardNumbers[account.CardNumber] = account.AccountKey
	}

	stored := models.RoleExtension{AccountKey: account.AccountKey, Role: account.Role, CreatedAt: now, UpdatedAt: now}
	if ext != nil {
		stored.Fields = ext.Fields
	}
	if s.extensions[account.Role] == nil {
		s.extensions[account.Role] = map[string]models.RoleExtension{}
	}
	s.extensions[account.Role][account.AccountKey] = stored

	out := *account
	return &out, nil
}

// UpdateProfile writes the supplied profile fields and refreshes updated_at.
func (s *Store) UpdateProfile(ctx context.Context, accountKey string, update models.ProfileUpdate) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountKey]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountKey, storage.ErrAccountNotFound)
	}
	if update.FirstName != nil {
		acc.FirstName = *update.FirstName
	}
	if update.MiddleName != nil {
		acc.MiddleName = *update.MiddleName
	}
	if update.LastName != nil {
		acc.LastName = *update.LastName
	}
	if update.MobileNumber != nil {
		acc.MobileNumber = *update.MobileNumber
	}
	if update.Address != nil {
		acc.Address = *update.Address
	}
	if update.Disabled != nil {
		acc.Disabled = *update.Disabled
	}
	if update.PINHash != nil {
		pin := *update.PINHash
		acc.PINHash = &pin
	}
	acc.UpdatedAt = s.now()
	s.accounts[accountKey] = acc
	return &acc, nil
}

// AdjustFunds atomically applies a delta to funds.
func (s *Store) AdjustFunds(ctx context.Context, adj models.FundsAdjustment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[adj.AccountKey]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", adj.AccountKey, storage.ErrAccountNotFound)
	}
	if adj.ExpectedUpdatedAt != nil && !acc.UpdatedAt.Equal(*adj.ExpectedUpdatedAt) {
		return 0, storage.ErrStaleAccount
	}
	if adj.TransactionID != "" {
		if _, done := s.settlements[models.SettlementID(adj.TransactionID, adj.Leg)]; done {
			return 0, storage.ErrAlreadySettled
		}
	}
	if acc.Funds+adj.Delta < 0 {
		return 0, storage.ErrInvalidDelta
	}

	now := s.now()
	acc.Funds += adj.Delta
	acc.TransactionCount++
	acc.UpdatedAt = now
	s.accounts[adj.AccountKey] = acc

	if adj.TransactionID != "" {
		id := models.SettlementID(adj.TransactionID, adj.Leg)
		s.settlements[id] = models.SettlementMarker{
			Id:            id,
			TransactionID: adj.TransactionID,
			AccountKey:    adj.AccountKey,
			Leg:           adj.Leg,
			Delta:         adj.Delta,
			SettledAt:     now,
		}
	}
	return acc.Funds, nil
}

// DeleteAccount removes the account and its role extension.
func (s *Store) DeleteAccount(ctx context.Context, accountKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountKey]
	if !ok {
		return fmt.Errorf("account %s: %w", accountKey, storage.ErrAccountNotFound)
	}
	delete(s.accounts, accountKey)
	delete(s.extensions[acc.Role], accountKey)
	delete(s.idNumbers, acc.IDNumber)
	if acc.CardNumber != "" {
		delete(s.cardNumbers, acc.CardNumber)
	}
	return nil
}

// Append stores a new transaction.
func (s *Store) Append(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if !tx.Type.Valid() || tx.Amount <= 0 {
		return nil, storage.ErrInvalidTransaction
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Id = uuid.New().String()
	tx.CreatedAt = s.now()
	s.transactions[tx.Id] = *tx
	out := *tx
	return &out, nil
}

// GetTransaction retrieves a transaction by its ID.
func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txID, storage.ErrTransactionNotFound)
	}
	return &tx, nil
}

// GetMany retrieves transactions by ID, omitting missing ones.
func (s *Store) GetMany(ctx context.Context, txIDs []string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, 0, len(txIDs))
	seen := make(map[string]bool, len(txIDs))
	for _, id := range txIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if tx, ok := s.transactions[id]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

// ListRecorded returns transactions created in [from, to), oldest first.
func (s *Store) ListRecorded(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.transactions {
		if !tx.CreatedAt.Before(from) && tx.CreatedAt.Before(to) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AddReference appends a reference row under the account.
func (s *Store) AddReference(ctx context.Context, accountKey, txID string, dir models.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	refID := models.ReferenceID(txID, dir)
	for _, ref := range s.references[accountKey] {
		if ref.ReferenceID == refID {
			return storage.ErrDuplicateReference
		}
	}
	s.references[accountKey] = append(s.references[accountKey], models.TransactionReference{
		AccountKey:    accountKey,
		ReferenceID:   refID,
		Type:          dir,
		TransactionID: txID,
		CreatedAt:     s.now(),
	})
	return nil
}

// ListReferences returns the transaction IDs referenced by the account.
func (s *Store) ListReferences(ctx context.Context, accountKey string, limit int32) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.references[accountKey]
	if limit > 0 && int(limit) < len(refs) {
		refs = refs[:limit]
	}
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.TransactionID
	}
	return ids, nil
}

// HasReference reports whether the account holds a row for txID in direction dir.
func (s *Store) HasReference(ctx context.Context, accountKey, txID string, dir models.Direction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refID := models.ReferenceID(txID, dir)
	for _, ref := range s.references[accountKey] {
		if ref.ReferenceID == refID {
			return true, nil
		}
	}
	return false, nil
}

// IsSettled reports whether the given leg of a transaction was applied.
func (s *Store) IsSettled(ctx context.Context, txID string, leg models.Leg) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.settlements[models.SettlementID(txID, leg)]
	return ok, nil
}
