package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/scheduler/mocks"
	"github.com/chris/campus-ledger/pkg/storage/memory"
	"github.com/chris/campus-ledger/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var cashier = auth.Principal{AccountKey: "cashier-key", IDNumber: "cash-1", Role: models.RoleCashier}

// droppingStore loses every receiver credit until heal is called.
type droppingStore struct {
	*memory.Store
	broken bool
}

func (s *droppingStore) AdjustFunds(ctx context.Context, adj models.FundsAdjustment) (int64, error) {
	if s.broken && adj.Leg == models.LegCredit {
		return 0, errors.New("write timed out")
	}
	return s.Store.AdjustFunds(ctx, adj)
}

type fixture struct {
	store     *droppingStore
	transfers *transfer.Service
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{clock: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	f.store = &droppingStore{Store: memory.New().WithClock(func() time.Time { return f.clock })}
	f.transfers = transfer.NewService(f.store, nil)

	ctx := context.Background()
	for _, acc := range []*models.Account{
		{AccountKey: "cashier-key", IDNumber: "cash-1", Role: models.RoleCashier},
		{AccountKey: "a", IDNumber: "2020-0001", Role: models.RoleStudent},
		{AccountKey: "b", IDNumber: "2020-0002", Role: models.RoleStudent},
	} {
		_, err := f.store.CreateAccount(ctx, acc, nil)
		require.NoError(t, err)
	}
	_, err := f.store.AdjustFunds(ctx, models.FundsAdjustment{AccountKey: "a", Delta: 1000})
	require.NoError(t, err)
	return f
}

func (f *fixture) pay(t *testing.T, amount int64) (string, error) {
	t.Helper()
	result, err := f.transfers.Execute(context.Background(), cashier, transfer.Request{
		Type: models.PAYMENT, Amount: amount, SenderIDNumber: "2020-0001", ReceiverIDNumber: "2020-0002",
	})
	var incomplete *transfer.IncompleteError
	if errors.As(err, &incomplete) {
		return incomplete.TransactionID, err
	}
	if err != nil {
		return "", err
	}
	return result.TransactionID, nil
}

func (f *fixture) reconciler(sched *mocks.Scheduler) *Reconciler {
	r := New(f.store, f.transfers, nil, 5*time.Minute, 24*time.Hour, nil)
	if sched != nil {
		r.scheduler = sched
	}
	r.now = func() time.Time { return f.clock }
	return r
}

func TestRunResumesIncompleteTransfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pay(t, 100)
	require.NoError(t, err)

	f.store.broken = true
	brokenID, err := f.pay(t, 200)
	require.Error(t, err)
	require.NotEmpty(t, brokenID)
	f.store.broken = false

	// Still within the minimum age: nothing is scanned.
	report, err := f.reconciler(nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)

	f.clock = f.clock.Add(10 * time.Minute)
	report, err = f.reconciler(nil).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 2, Incomplete: 1, Resumed: 1}, report)

	a, _ := f.store.GetAccount(ctx, "a")
	b, _ := f.store.GetAccount(ctx, "b")
	assert.Equal(t, int64(700), a.Funds)
	assert.Equal(t, int64(300), b.Funds)

	// A second pass finds nothing left to do.
	report, err = f.reconciler(nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Incomplete)
}

func TestRunRequeuesThroughScheduler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.broken = true
	brokenID, err := f.pay(t, 200)
	require.Error(t, err)

	sched := mocks.NewScheduler(t)
	sched.On("ScheduleReplay", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Id == brokenID
	}), time.Duration(0)).Return(nil).Once()

	f.clock = f.clock.Add(10 * time.Minute)
	report, err := f.reconciler(sched).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 1, Incomplete: 1, Requeued: 1}, report)

	b, _ := f.store.GetAccount(ctx, "b")
	assert.Equal(t, int64(0), b.Funds)
}

func TestRunCountsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.broken = true
	_, err := f.pay(t, 200)
	require.Error(t, err)

	f.clock = f.clock.Add(10 * time.Minute)
	report, err := f.reconciler(nil).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 1, Incomplete: 1, Failed: 1}, report)
}
