// Package accounts registers and administers campus accounts and serves
// their profiles and transaction history.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidRequest is returned when a request fails validation.
var ErrInvalidRequest = errors.New("invalid account request")

// Store is the storage the account service needs.
type Store interface {
	storage.IdentityResolver
	storage.AccountStore
	storage.TransactionLedger
	storage.ReferenceIndex
}

// RegisterRequest carries the profile of a new account. AccountKey is the
// identity provider's user ID; a random key is generated when it is empty.
type RegisterRequest struct {
	AccountKey   string            `validate:"omitempty,max=128"`
	IDNumber     string            `validate:"required,max=64"`
	CardNumber   string            `validate:"omitempty,max=64"`
	Email        string            `validate:"required,email"`
	FirstName    string            `validate:"required,max=100"`
	MiddleName   string            `validate:"max=100"`
	LastName     string            `validate:"required,max=100"`
	MobileNumber string            `validate:"omitempty,max=32"`
	Address      string            `validate:"max=255"`
	Role         models.Role       `validate:"required"`
	Fields       map[string]string `validate:"omitempty,dive,keys,required,endkeys,max=255"`
}

// UpdateRequest lists the profile fields that may change. Nil fields are
// left untouched. PIN is given in plain text and stored hashed.
type UpdateRequest struct {
	FirstName    *string `validate:"omitempty,min=1,max=100"`
	MiddleName   *string `validate:"omitempty,max=100"`
	LastName     *string `validate:"omitempty,min=1,max=100"`
	MobileNumber *string `validate:"omitempty,max=32"`
	Address      *string `validate:"omitempty,max=255"`
	Disabled     *bool
	PIN          *string `validate:"omitempty,numeric,min=4,max=8"`
}

// Profile is an account as seen by a particular caller. When Full is false
// only the public fields may be shown.
type Profile struct {
	Account   *models.Account
	Extension *models.RoleExtension
	Full      bool
}

// Service implements account administration.
type Service struct {
	store    Store
	validate *validator.Validate
	pinCost  int
	logger   *slog.Logger
}

// NewService creates an account service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		validate: validator.New(),
		pinCost:  bcrypt.DefaultCost,
		logger:   logger,
	}
}

// Register creates an account and its role extension.
func (s *Service) Register(ctx context.Context, caller auth.Principal, req RegisterRequest) (*models.Account, error) {
	if err := auth.CanAdminister(caller); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	spec, ok := models.LookupRole(req.Role)
	if !ok {
		return nil, fmt.Errorf("role %q: %w", req.Role, storage.ErrInvalidRole)
	}
	fields, err := spec.BuildExtension(req.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	key := req.AccountKey
	if key == "" {
		key = uuid.NewString()
	}

	account := &models.Account{
		AccountKey:   key,
		IDNumber:     req.IDNumber,
		CardNumber:   req.CardNumber,
		Email:        req.Email,
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		MobileNumber: req.MobileNumber,
		Address:      req.Address,
		Role:         req.Role,
	}

	created, err := s.store.CreateAccount(ctx, account, &models.RoleExtension{Fields: fields})
	if err != nil {
		s.logger.Warn("account registration failed", "id_number", req.IDNumber, "role", req.Role, "error", err)
		return nil, err
	}

	s.logger.Info("account registered", "account_key", created.AccountKey, "id_number", created.IDNumber, "role", created.Role)
	return created, nil
}

// Get returns the profile of the account holding idNumber, marked full or
// redacted for caller.
func (s *Service) Get(ctx context.Context, caller auth.Principal, idNumber string) (*Profile, error) {
	if err := auth.CanRead(caller); err != nil {
		return nil, err
	}

	account, err := s.lookup(ctx, idNumber)
	if err != nil {
		return nil, err
	}

	profile := &Profile{Account: account, Full: auth.CanViewFull(caller, idNumber)}
	if profile.Full {
		ext, err := s.store.GetRoleExtension(ctx, account.AccountKey, account.Role)
		switch {
		case err == nil:
			profile.Extension = ext
		case errors.Is(err, storage.ErrAccountNotFound):
			s.logger.Warn("account has no role extension", "account_key", account.AccountKey, "role", account.Role)
		default:
			return nil, err
		}
	}
	return profile, nil
}

// Update writes the allow-listed profile fields of the account holding idNumber.
func (s *Service) Update(ctx context.Context, caller auth.Principal, idNumber string, req UpdateRequest) (*models.Account, error) {
	if err := auth.CanAdminister(caller); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	update := models.ProfileUpdate{
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		MobileNumber: req.MobileNumber,
		Address:      req.Address,
		Disabled:     req.Disabled,
	}
	if req.PIN != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.PIN), s.pinCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash PIN: %w", err)
		}
		h := string(hash)
		update.PINHash = &h
	}
	if update.Empty() {
		return nil, fmt.Errorf("%w: no updatable fields supplied", ErrInvalidRequest)
	}

	key, err := s.store.ResolveByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, err
	}

	account, err := s.store.UpdateProfile(ctx, key, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account updated", "account_key", key, "id_number", idNumber, "pin_changed", req.PIN != nil)
	return account, nil
}

// Delete removes the account holding idNumber and its role extension.
// Transactions and reference rows are kept.
func (s *Service) Delete(ctx context.Context, caller auth.Principal, idNumber string) error {
	if err := auth.CanAdminister(caller); err != nil {
		return err
	}

	key, err := s.store.ResolveByIDNumber(ctx, idNumber)
	if err != nil {
		return err
	}
	if key == caller.AccountKey {
		return fmt.Errorf("%w: an admin cannot delete their own account", ErrInvalidRequest)
	}

	if err := s.store.DeleteAccount(ctx, key); err != nil {
		return err
	}

	s.logger.Info("account deleted", "account_key", key, "id_number", idNumber)
	return nil
}

// ListTransactions returns up to limit Transactions referenced by the
// account holding idNumber, most recent first. The limit caps the reference
// rows read, so with a limit the result is the most recent of those rows
// rather than of the whole history.
func (s *Service) ListTransactions(ctx context.Context, caller auth.Principal, idNumber string, limit int32) ([]models.Transaction, error) {
	if err := auth.CanRead(caller); err != nil {
		return nil, err
	}
	if !auth.CanViewFull(caller, idNumber) {
		return nil, fmt.Errorf("%w: history of %s is not visible to the caller", auth.ErrForbidden, idNumber)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}

	key, err := s.store.ResolveByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, err
	}

	ids, err := s.store.ListReferences(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Transaction{}, nil
	}

	txs, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}

func (s *Service) lookup(ctx context.Context, idNumber string) (*models.Account, error) {
	key, err := s.store.ResolveByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, err
	}
	return s.store.GetAccount(ctx, key)
}
