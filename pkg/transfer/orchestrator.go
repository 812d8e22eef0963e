// Package transfer moves value between accounts. A transfer runs as a
// linear pipeline: resolve both participants, authorize, record the
// Transaction, index it under both accounts and settle the balances. Once
// the Transaction is recorded the remaining stages are idempotent, keyed by
// the transaction ID, so an interrupted transfer can be replayed with Resume.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/scheduler"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// Store is the storage the orchestrator drives.
type Store interface {
	storage.IdentityResolver
	storage.AccountReader
	storage.TransactionLedger
	storage.ReferenceIndex
	storage.SettlementLog
	AdjustFunds(ctx context.Context, adj models.FundsAdjustment) (int64, error)
}

// Request is a transfer as submitted by a caller. Exactly one of
// SenderIDNumber and SenderCardNumber identifies the sender; the card form
// is accepted for payments only.
type Request struct {
	Type             models.TransactionType `validate:"required"`
	Amount           int64
	SenderIDNumber   string `validate:"required_without=SenderCardNumber,excluded_with=SenderCardNumber,max=64"`
	SenderCardNumber string `validate:"max=64"`
	ReceiverIDNumber string `validate:"required,max=64"`
	PIN              string `validate:"omitempty,numeric,min=4,max=8"`
	Message          string `validate:"max=280"`
	RequestID        string
}

// Result describes a transfer that ran to completion.
type Result struct {
	TransactionID string
	Transaction   *models.Transaction
	Stage         Stage
}

// Service is the transfer orchestrator.
type Service struct {
	store       Store
	scheduler   scheduler.Scheduler
	replayDelay time.Duration
	validate    *validator.Validate
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithScheduler requeues incomplete transfers for replay after delay.
func WithScheduler(s scheduler.Scheduler, delay time.Duration) Option {
	return func(svc *Service) {
		svc.scheduler = s
		svc.replayDelay = delay
	}
}

// NewService creates a transfer orchestrator.
func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs a transfer for caller. Rejections before the Transaction is
// recorded have no side effects. A failure after it is recorded returns an
// *IncompleteError carrying the transaction ID.
func (s *Service) Execute(ctx context.Context, caller auth.Principal, req Request) (*Result, error) {
	log := s.logger.With("request_id", req.RequestID, "type", req.Type, "amount", req.Amount)
	log.Info("transfer started",
		"caller", caller.AccountKey,
		"sender", req.SenderIDNumber,
		"receiver", req.ReceiverIDNumber,
	)

	policy, err := s.check(req)
	if err != nil {
		log.Warn("transfer rejected", "stage", StageRequested, "error", err)
		return nil, err
	}

	if err := auth.CanTransact(caller, req.Type, req.SenderIDNumber); err != nil {
		log.Warn("transfer rejected", "stage", StageRequested, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	sender, receiverKey, err := s.resolve(ctx, req)
	if err != nil {
		log.Warn("transfer rejected", "stage", StageRequested, "error", err)
		return nil, err
	}

	if err := s.authorize(sender, req, policy); err != nil {
		log.Warn("transfer rejected", "stage", StageIdentitiesResolved, "error", err)
		return nil, err
	}

	tx, err := s.store.Append(ctx, &models.Transaction{
		Type:     req.Type,
		Amount:   req.Amount,
		Sender:   sender.IDNumber,
		Receiver: req.ReceiverIDNumber,
		Message:  req.Message,
	})
	if err != nil {
		log.Error("failed to record transaction", "stage", StageAuthorized, "error", err)
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	log = log.With("transaction_id", tx.Id)

	stage, err := s.complete(ctx, tx, sender.AccountKey, receiverKey)
	if err != nil {
		return nil, s.incomplete(ctx, log, tx, stage, err)
	}

	log.Info("transfer successful")
	return &Result{TransactionID: tx.Id, Transaction: tx, Stage: StageSettled}, nil
}

// Resume replays indexing and settlement for a recorded Transaction. Only
// the ID of tx is trusted: the Transaction is re-read from the ledger and
// the stored copy is settled. An ID that was never recorded returns an error
// wrapping storage.ErrTransactionNotFound and touches nothing. Stages that
// already completed are skipped.
func (s *Service) Resume(ctx context.Context, tx *models.Transaction) (*Result, error) {
	log := s.logger.With("transaction_id", tx.Id)

	stored, err := s.store.GetTransaction(ctx, tx.Id)
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			log.Error("refusing to replay unrecorded transaction", "error", err)
			return nil, err
		}
		log.Error("failed to load transaction for replay", "error", err)
		return nil, &IncompleteError{TransactionID: tx.Id, Stage: StageRecorded, Err: err}
	}
	if stored.Type != tx.Type || stored.Amount != tx.Amount || stored.Sender != tx.Sender || stored.Receiver != tx.Receiver {
		log.Warn("replay request differs from recorded transaction, using recorded copy")
	}
	tx = stored

	log = log.With("type", tx.Type, "amount", tx.Amount)
	log.Info("resuming transfer")

	senderKey, receiverKey, err := s.participants(ctx, tx)
	if err != nil {
		log.Error("failed to resolve participants for replay", "error", err)
		return nil, &IncompleteError{TransactionID: tx.Id, Stage: StageRecorded, Err: err}
	}

	stage, err := s.complete(ctx, tx, senderKey, receiverKey)
	if err != nil {
		log.Error("transfer replay incomplete", "stage", stage, "error", err)
		return nil, &IncompleteError{TransactionID: tx.Id, Stage: stage, Err: err}
	}

	log.Info("transfer resumed to completion")
	return &Result{TransactionID: tx.Id, Transaction: tx, Stage: StageSettled}, nil
}

// Inspect reports the last stage a recorded Transaction has completed.
func (s *Service) Inspect(ctx context.Context, tx *models.Transaction) (Stage, error) {
	senderKey, receiverKey, err := s.participants(ctx, tx)
	if err != nil {
		return StageRecorded, err
	}

	for _, ref := range references(senderKey, receiverKey) {
		ok, err := s.store.HasReference(ctx, ref.accountKey, tx.Id, ref.dir)
		if err != nil {
			return StageRecorded, fmt.Errorf("failed to check %s reference: %w", ref.dir, err)
		}
		if !ok {
			return StageRecorded, nil
		}
	}

	for _, leg := range Legs(tx.Type) {
		ok, err := s.store.IsSettled(ctx, tx.Id, leg)
		if err != nil {
			return StageIndexed, fmt.Errorf("failed to check %s leg: %w", leg, err)
		}
		if !ok {
			return StageIndexed, nil
		}
	}

	return StageSettled, nil
}

func (s *Service) check(req Request) (settlementPolicy, error) {
	if req.Amount <= 0 {
		return settlementPolicy{}, ErrInvalidAmount
	}
	policy, ok := policyFor(req.Type)
	if !ok {
		return settlementPolicy{}, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	if err := s.validate.Struct(req); err != nil {
		return settlementPolicy{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.SenderCardNumber != "" && !policy.allowCard {
		return settlementPolicy{}, fmt.Errorf("%w: card number is only accepted for %s", ErrInvalidRequest, models.PAYMENT)
	}
	return policy, nil
}

// resolve maps the sender to its account and the receiver to its key.
func (s *Service) resolve(ctx context.Context, req Request) (*models.Account, string, error) {
	var sender *models.Account
	if req.SenderCardNumber != "" {
		acc, err := s.store.ResolveByCardNumber(ctx, req.SenderCardNumber)
		if err != nil {
			return nil, "", unknown(err, "card number "+req.SenderCardNumber)
		}
		sender = acc
	} else {
		key, err := s.store.ResolveByIDNumber(ctx, req.SenderIDNumber)
		if err != nil {
			return nil, "", unknown(err, req.SenderIDNumber)
		}
		acc, err := s.store.GetAccount(ctx, key)
		if err != nil {
			return nil, "", unknown(err, req.SenderIDNumber)
		}
		sender = acc
	}

	receiverKey, err := s.store.ResolveByIDNumber(ctx, req.ReceiverIDNumber)
	if err != nil {
		return nil, "", unknown(err, req.ReceiverIDNumber)
	}

	if sender.AccountKey == receiverKey {
		return nil, "", ErrSameAccount
	}
	return sender, receiverKey, nil
}

func unknown(err error, who string) error {
	if errors.Is(err, storage.ErrAccountNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, who)
	}
	return fmt.Errorf("failed to resolve %s: %w", who, err)
}

// authorize applies the business rules that depend on the sender's account.
func (s *Service) authorize(sender *models.Account, req Request, policy settlementPolicy) error {
	if !policy.debitSender {
		return nil
	}
	if sender.Disabled {
		return ErrAccountDisabled
	}
	if req.Type == models.PAYMENT && sender.HasPIN() {
		if err := bcrypt.CompareHashAndPassword([]byte(*sender.PINHash), []byte(req.PIN)); err != nil {
			return ErrPINMismatch
		}
	}
	if policy.checkSolvency && sender.Funds < req.Amount {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *Service) participants(ctx context.Context, tx *models.Transaction) (string, string, error) {
	senderKey, err := s.store.ResolveByIDNumber(ctx, tx.Sender)
	if err != nil {
		return "", "", participantErr(err, tx.Sender)
	}
	receiverKey, err := s.store.ResolveByIDNumber(ctx, tx.Receiver)
	if err != nil {
		return "", "", participantErr(err, tx.Receiver)
	}
	return senderKey, receiverKey, nil
}

func participantErr(err error, idNumber string) error {
	if errors.Is(err, storage.ErrAccountNotFound) {
		return fmt.Errorf("%w: %s", ErrParticipantNotFound, idNumber)
	}
	return fmt.Errorf("failed to resolve %s: %w", idNumber, err)
}

type reference struct {
	accountKey string
	dir        models.Direction
}

func references(senderKey, receiverKey string) []reference {
	return []reference{
		{accountKey: senderKey, dir: models.DirectionSend},
		{accountKey: receiverKey, dir: models.DirectionReceive},
	}
}

// complete runs the index and settle stages. It returns the last stage that
// completed.
func (s *Service) complete(ctx context.Context, tx *models.Transaction, senderKey, receiverKey string) (Stage, error) {
	policy, ok := policyFor(tx.Type)
	if !ok {
		return StageRecorded, fmt.Errorf("%w: %q", ErrInvalidType, tx.Type)
	}

	for _, ref := range references(senderKey, receiverKey) {
		err := s.store.AddReference(ctx, ref.accountKey, tx.Id, ref.dir)
		if err != nil && !errors.Is(err, storage.ErrDuplicateReference) {
			return StageRecorded, fmt.Errorf("failed to index %s reference: %w", ref.dir, err)
		}
	}

	// The sender is debited before the receiver is credited.
	if policy.debitSender {
		if err := s.settle(ctx, senderKey, -tx.Amount, tx.Id, models.LegDebit); err != nil {
			return StageIndexed, err
		}
	}
	if err := s.settle(ctx, receiverKey, tx.Amount, tx.Id, models.LegCredit); err != nil {
		return StageIndexed, err
	}

	return StageSettled, nil
}

func (s *Service) settle(ctx context.Context, accountKey string, delta int64, txID string, leg models.Leg) error {
	_, err := s.store.AdjustFunds(ctx, models.FundsAdjustment{
		AccountKey:    accountKey,
		Delta:         delta,
		TransactionID: txID,
		Leg:           leg,
	})
	switch {
	case err == nil, errors.Is(err, storage.ErrAlreadySettled):
		return nil
	case errors.Is(err, storage.ErrInvalidDelta):
		return fmt.Errorf("failed to settle %s leg: %w", leg, ErrInsufficientFunds)
	default:
		return fmt.Errorf("failed to settle %s leg: %w", leg, err)
	}
}

// incomplete logs a partially applied transfer, requeues it for replay and
// returns the error surfaced to the caller.
func (s *Service) incomplete(ctx context.Context, log *slog.Logger, tx *models.Transaction, stage Stage, err error) error {
	log.Error("transfer incomplete", "stage", stage, "error", err)

	if s.scheduler != nil {
		// The caller may already be gone; the replay must still be queued.
		if serr := s.scheduler.ScheduleReplay(context.WithoutCancel(ctx), tx, s.replayDelay); serr != nil {
			log.Error("failed to schedule transfer replay", "error", serr)
		} else {
			log.Info("transfer replay scheduled", "delay", s.replayDelay)
		}
	}

	return &IncompleteError{TransactionID: tx.Id, Stage: stage, Err: err}
}

// Get returns a recorded Transaction. Admins and accountants may read any
// Transaction; other callers only those they took part in.
func (s *Service) Get(ctx context.Context, caller auth.Principal, txID string) (*models.Transaction, error) {
	if err := auth.CanRead(caller); err != nil {
		return nil, err
	}

	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	switch {
	case caller.Role == models.RoleAdmin, caller.Role == models.RoleAccountant:
	case caller.IDNumber == tx.Sender, caller.IDNumber == tx.Receiver:
	default:
		return nil, fmt.Errorf("%w: not a participant of transaction %s", auth.ErrForbidden, txID)
	}
	return tx, nil
}
