package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reachpay/internal/config/configs"
	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
	"reachpay/internal/metrics"
)

// fakeRepo is an in-memory LedgerRepository covering the methods the
// tests exercise. Unimplemented methods panic through the embedded nil
// interface, which is the desired failure mode for an unexpected call.
type fakeRepo struct {
	port.LedgerRepository

	mu           sync.Mutex
	users        map[string]*domain.User
	wallets      map[string]*domain.EscrowWallet
	socials      map[string]*domain.SocialAccount
	campaigns    map[string]*domain.Campaign
	applications map[string]*domain.Application
	earnings     map[string]int64
	withdrawals  map[string]*domain.Withdrawal
	funds        map[string]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:        make(map[string]*domain.User),
		wallets:      make(map[string]*domain.EscrowWallet),
		socials:      make(map[string]*domain.SocialAccount),
		campaigns:    make(map[string]*domain.Campaign),
		applications: make(map[string]*domain.Application),
		earnings:     make(map[string]int64),
		withdrawals:  make(map[string]*domain.Withdrawal),
		funds:        make(map[string]int64),
	}
}

func (f *fakeRepo) CreateUser(_ context.Context, u *domain.User, w *domain.EscrowWallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.WalletAddress]; ok {
		return domain.ErrRoleConflict
	}
	f.users[u.WalletAddress] = u
	if w != nil {
		f.wallets[u.WalletAddress] = w
	}
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, address string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[address]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetEscrowWallet(_ context.Context, address string) (*domain.EscrowWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[address]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return w, nil
}

func (f *fakeRepo) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[c.ID] = c
	return nil
}

// SettleMetrics mirrors the store's payee rule: the earliest approved
// application names the creator to credit, and with no approved
// application the metrics advance but nothing is owed.
func (f *fakeRepo) SettleMetrics(_ context.Context, id string, views, likes int64) (*domain.Campaign, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, 0, domain.ErrCampaignNotFound
	}
	var creator string
	var earliest time.Time
	for _, a := range f.applications {
		if a.CampaignID == id && a.Status == domain.ApplicationApproved {
			if creator == "" || a.CreatedAt.Before(earliest) {
				creator, earliest = a.CreatorAddress, a.CreatedAt
			}
		}
	}
	paid, err := c.ApplyMetrics(views, likes, time.Now().UTC())
	if err != nil {
		return nil, 0, err
	}
	if creator == "" && paid > 0 {
		c.TotalPaid -= paid
		paid = 0
	}
	if paid > 0 {
		f.earnings[creator] += paid
	}
	cp := *c
	return &cp, paid, nil
}

func (f *fakeRepo) GetEarnings(_ context.Context, creator string) (*domain.CreatorEarnings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.CreatorEarnings{WalletAddress: creator, Balance: f.earnings[creator]}, nil
}

func (f *fakeRepo) CreateWithdrawal(_ context.Context, w *domain.Withdrawal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *w
	f.withdrawals[w.ID] = &cp
	return nil
}

func (f *fakeRepo) GetWithdrawal(_ context.Context, id string) (*domain.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (f *fakeRepo) MarkWithdrawalTransferring(_ context.Context, id, txID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.withdrawals[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	w.State = domain.WithdrawalTransferring
	w.TxID = txID
	return nil
}

func (f *fakeRepo) CommitWithdrawal(_ context.Context, id string) (*domain.CreatorEarnings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	balance := f.earnings[w.CreatorAddress]
	if w.State == domain.WithdrawalCommitted {
		return &domain.CreatorEarnings{WalletAddress: w.CreatorAddress, Balance: balance}, nil
	}
	if balance < w.Amount {
		return nil, &domain.InsufficientBalanceError{Available: balance, Requested: w.Amount}
	}
	f.earnings[w.CreatorAddress] = balance - w.Amount
	w.State = domain.WithdrawalCommitted
	return &domain.CreatorEarnings{WalletAddress: w.CreatorAddress, Balance: balance - w.Amount}, nil
}

func (f *fakeRepo) FailWithdrawal(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.withdrawals[id]; ok {
		w.State = domain.WithdrawalFailed
	}
	return nil
}

func (f *fakeRepo) ListTransferringWithdrawals(context.Context) ([]domain.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Withdrawal
	for _, w := range f.withdrawals {
		if w.State == domain.WithdrawalTransferring {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeRepo) AddFunds(_ context.Context, address string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funds[address] += amount
	return f.funds[address], nil
}

func (f *fakeRepo) GetFunds(_ context.Context, address string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.funds[address], nil
}

func (f *fakeRepo) balanceOf(creator string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.earnings[creator]
}

func (f *fakeRepo) withdrawalStates() map[domain.WithdrawalState]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	states := make(map[domain.WithdrawalState]int)
	for _, w := range f.withdrawals {
		states[w.State]++
	}
	return states
}

type mockChain struct {
	mock.Mock
}

func (m *mockChain) GetBalance(ctx context.Context, address string) (int64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockChain) Transfer(ctx context.Context, from, to string, amount int64, idempotencyKey string) (string, error) {
	args := m.Called(ctx, from, to, amount, idempotencyKey)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func realChainCfg() configs.Chain {
	return configs.Chain{
		SettlementURL:  "http://settlement.test",
		FundingAddress: "platform-escrow",
		MinWithdrawal:  1_000_000,
	}
}

func simulatedChainCfg() configs.Chain {
	return configs.Chain{MinWithdrawal: 1_000_000}
}

func seedBrand(t *testing.T, repo *fakeRepo, address string) {
	t.Helper()
	repo.users[address] = &domain.User{WalletAddress: address, Role: domain.RoleBrand, EscrowAddress: address + "-escrow"}
	repo.wallets[address] = &domain.EscrowWallet{UserAddress: address, PublicKey: address + "-escrow"}
}

func seedCreator(repo *fakeRepo, address string, balance int64) {
	repo.users[address] = &domain.User{WalletAddress: address, Role: domain.RoleCreator}
	repo.earnings[address] = balance
}

func TestRegisterUser(t *testing.T) {
	repo := newFakeRepo()
	svc := NewLedgerService(repo, new(mockChain), simulatedChainCfg(), testLogger())
	ctx := context.Background()

	u, err := svc.RegisterUser(ctx, "brand-1", domain.RoleBrand)
	require.NoError(t, err)
	assert.NotEmpty(t, u.EscrowAddress, "brands get a generated escrow wallet")
	require.NotNil(t, repo.wallets["brand-1"])
	assert.Equal(t, u.EscrowAddress, repo.wallets["brand-1"].PublicKey)

	// Idempotent re-register with the stored role.
	again, err := svc.RegisterUser(ctx, "brand-1", domain.RoleBrand)
	require.NoError(t, err)
	assert.Equal(t, u.EscrowAddress, again.EscrowAddress)

	// Same address with a different role is a conflict, not a switch.
	_, err = svc.RegisterUser(ctx, "brand-1", domain.RoleCreator)
	assert.True(t, errors.Is(err, domain.ErrRoleConflict))

	c, err := svc.RegisterUser(ctx, "creator-1", domain.RoleCreator)
	require.NoError(t, err)
	assert.Empty(t, c.EscrowAddress, "creators hold their own wallet")

	_, err = svc.RegisterUser(ctx, "", domain.RoleCreator)
	assert.True(t, errors.Is(err, domain.ErrMissingAddress))
	_, err = svc.RegisterUser(ctx, "x", "admin")
	assert.True(t, errors.Is(err, domain.ErrInvalidRole))
}

func TestCreateCampaignInsufficientFunds(t *testing.T) {
	repo := newFakeRepo()
	seedBrand(t, repo, "brand-1")
	chain := new(mockChain)
	chain.On("GetBalance", mock.Anything, "brand-1-escrow").Return(int64(400_000_000), nil)
	svc := NewLedgerService(repo, chain, realChainCfg(), testLogger())

	_, err := svc.CreateCampaign(context.Background(), port.CreateCampaignParams{
		Brand: "brand-1", Title: "t", CPM: 10_000_000, MaxBudget: 500_000_000, DurationDays: 7,
	})
	var insufficient *domain.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(500_000_000), insufficient.Required)
	assert.Equal(t, int64(400_000_000), insufficient.Available)
	assert.Equal(t, "brand-1-escrow", insufficient.EscrowAddress)
	assert.Empty(t, repo.campaigns, "underfunded campaign must not be stored")
	chain.AssertExpectations(t)
}

func TestCreateCampaignForbiddenForCreators(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 0)
	svc := NewLedgerService(repo, new(mockChain), simulatedChainCfg(), testLogger())

	_, err := svc.CreateCampaign(context.Background(), port.CreateCampaignParams{
		Brand: "creator-1", CPM: 1, MaxBudget: 1, DurationDays: 1,
	})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestCreateCampaignValidation(t *testing.T) {
	svc := NewLedgerService(newFakeRepo(), new(mockChain), simulatedChainCfg(), testLogger())
	for _, p := range []port.CreateCampaignParams{
		{Brand: "b", CPM: 0, MaxBudget: 1, DurationDays: 1},
		{Brand: "b", CPM: 1, MaxBudget: 0, DurationDays: 1},
		{Brand: "b", CPM: 1, MaxBudget: 1, DurationDays: 0},
		{Brand: "b", CPM: 1, LikeWeight: -1, MaxBudget: 1, DurationDays: 1},
	} {
		_, err := svc.CreateCampaign(context.Background(), p)
		assert.True(t, errors.Is(err, domain.ErrInvalidAmount))
	}
}

func TestCreateCampaignSimulatedSkipsBalanceCheck(t *testing.T) {
	repo := newFakeRepo()
	seedBrand(t, repo, "brand-1")
	chain := new(mockChain) // no expectations: GetBalance must not be called
	svc := NewLedgerService(repo, chain, simulatedChainCfg(), testLogger())

	c, err := svc.CreateCampaign(context.Background(), port.CreateCampaignParams{
		Brand: "brand-1", Title: "t", CPM: 10_000_000_000, LikeWeight: 20,
		MaxBudget: 1_000_000_000_000, DurationDays: 30,
	})
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Equal(t, "brand-1-escrow", c.EscrowAddress)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), c.EndTime, time.Minute)
	chain.AssertExpectations(t)
}

func TestReportMetricsCreditsApprovedCreator(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now().UTC()
	repo.campaigns["c1"] = &domain.Campaign{
		ID: "c1", Brand: "brand-1", CPM: 10_000_000_000, LikeWeight: 20,
		MaxBudget: 1_000_000_000_000, IsActive: true,
		StartTime: now, EndTime: now.Add(24 * time.Hour),
	}
	repo.applications["a1"] = &domain.Application{
		ID: "a1", CampaignID: "c1", CreatorAddress: "creator-1",
		Status: domain.ApplicationApproved, CreatedAt: now,
	}
	svc := NewLedgerService(repo, new(mockChain), simulatedChainCfg(), testLogger())
	ctx := context.Background()

	c, err := svc.ReportMetrics(ctx, "c1", 2000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000_000), c.TotalPaid)
	assert.Equal(t, int64(20_000_000_000), repo.balanceOf("creator-1"))

	// Identical re-report credits nothing.
	_, err = svc.ReportMetrics(ctx, "c1", 2000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000_000), repo.balanceOf("creator-1"))

	_, err = svc.ReportMetrics(ctx, "c1", -1, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount))
}

// With no approved application there is no payee: metrics still advance
// but the escrow is not spent, and nothing is credited. Once a creator
// is approved, a re-report of the same numbers unlocks the full amount.
func TestReportMetricsNoApprovedApplication(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now().UTC()
	repo.campaigns["c1"] = &domain.Campaign{
		ID: "c1", Brand: "brand-1", CPM: 10_000_000_000, LikeWeight: 20,
		MaxBudget: 1_000_000_000_000, IsActive: true,
		StartTime: now, EndTime: now.Add(24 * time.Hour),
	}
	repo.applications["a1"] = &domain.Application{
		ID: "a1", CampaignID: "c1", CreatorAddress: "creator-1",
		Status: domain.ApplicationPending, CreatedAt: now,
	}
	svc := NewLedgerService(repo, new(mockChain), simulatedChainCfg(), testLogger())
	ctx := context.Background()

	c, err := svc.ReportMetrics(ctx, "c1", 2000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), c.Views)
	assert.Zero(t, c.TotalPaid)
	assert.Zero(t, repo.balanceOf("creator-1"))

	require.NoError(t, repo.applications["a1"].Decide(domain.ApplicationApproved, now))

	c, err = svc.ReportMetrics(ctx, "c1", 2000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000_000), c.TotalPaid)
	assert.Equal(t, int64(20_000_000_000), repo.balanceOf("creator-1"))
}

func TestWithdrawBelowMinimum(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 10_000_000)
	svc := NewLedgerService(repo, new(mockChain), realChainCfg(), testLogger())

	_, err := svc.Withdraw(context.Background(), "creator-1", 999_999, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount))
	assert.Equal(t, int64(10_000_000), repo.balanceOf("creator-1"))
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 0)
	svc := NewLedgerService(repo, new(mockChain), realChainCfg(), testLogger())

	_, err := svc.Withdraw(context.Background(), "creator-1", 5_000_000, "")
	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), insufficient.Available)
	assert.Equal(t, int64(5_000_000), insufficient.Requested)
	assert.Empty(t, repo.withdrawals, "failed balance check must not journal a withdrawal")
}

func TestWithdrawTransferFailureLeavesLedgerUntouched(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 100_000_000)
	chain := new(mockChain)
	chain.On("Transfer", mock.Anything, "platform-escrow", "creator-1", int64(50_000_000), mock.AnythingOfType("string")).
		Return("", domain.ErrTransferFailed)
	svc := NewLedgerService(repo, chain, realChainCfg(), testLogger())

	_, err := svc.Withdraw(context.Background(), "creator-1", 50_000_000, "")
	require.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.Equal(t, int64(100_000_000), repo.balanceOf("creator-1"))
	assert.Equal(t, map[domain.WithdrawalState]int{domain.WithdrawalFailed: 1}, repo.withdrawalStates())
	chain.AssertExpectations(t)
}

func TestWithdrawSuccess(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 100_000_000)
	chain := new(mockChain)
	chain.On("Transfer", mock.Anything, "platform-escrow", "creator-1", int64(60_000_000), mock.AnythingOfType("string")).
		Return("tx-abc", nil)
	svc := NewLedgerService(repo, chain, realChainCfg(), testLogger())

	receipt, err := svc.Withdraw(context.Background(), "creator-1", 60_000_000, "")
	require.NoError(t, err)
	assert.Equal(t, int64(60_000_000), receipt.Withdrawn)
	assert.Equal(t, int64(40_000_000), receipt.RemainingBalance)
	assert.Equal(t, "tx-abc", receipt.TxID)
	assert.False(t, receipt.Simulated)
	assert.Equal(t, int64(40_000_000), repo.balanceOf("creator-1"))
	assert.Equal(t, map[domain.WithdrawalState]int{domain.WithdrawalCommitted: 1}, repo.withdrawalStates())
	chain.AssertExpectations(t)
}

func TestWithdrawSimulated(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 100_000_000)
	chain := new(mockChain) // Transfer must not be called
	svc := NewLedgerService(repo, chain, simulatedChainCfg(), testLogger())

	receipt, err := svc.Withdraw(context.Background(), "creator-1", 100_000_000, "")
	require.NoError(t, err)
	assert.True(t, receipt.Simulated)
	assert.Empty(t, receipt.TxID)
	assert.Zero(t, receipt.RemainingBalance)
	assert.Zero(t, repo.balanceOf("creator-1"))
	chain.AssertExpectations(t)
}

// A client retry after a failed or timed-out attempt resends the same
// idempotency key; the retry must reuse the journaled withdrawal row so
// the settlement service sees the same key both times and can collapse
// the two attempts into a single transfer.
func TestWithdrawRetryReusesIdempotencyKey(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 50_000_000)
	chain := new(mockChain)
	var keys []string
	capture := func(args mock.Arguments) { keys = append(keys, args.String(4)) }
	chain.On("Transfer", mock.Anything, "platform-escrow", "creator-1", int64(50_000_000), mock.AnythingOfType("string")).
		Run(capture).Return("", domain.ErrTransferFailed).Once()
	chain.On("Transfer", mock.Anything, "platform-escrow", "creator-1", int64(50_000_000), mock.AnythingOfType("string")).
		Run(capture).Return("tx-retry", nil).Once()
	svc := NewLedgerService(repo, chain, realChainCfg(), testLogger())
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, "creator-1", 50_000_000, "wd-key-1")
	require.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.Equal(t, int64(50_000_000), repo.balanceOf("creator-1"))

	receipt, err := svc.Withdraw(ctx, "creator-1", 50_000_000, "wd-key-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-retry", receipt.TxID)
	assert.Zero(t, repo.balanceOf("creator-1"))

	require.Len(t, keys, 2)
	assert.Equal(t, "wd-key-1", keys[0])
	assert.Equal(t, keys[0], keys[1], "retry must put the same key on the wire")
	// One journal row for both attempts, debited exactly once.
	assert.Equal(t, map[domain.WithdrawalState]int{domain.WithdrawalCommitted: 1}, repo.withdrawalStates())
	chain.AssertExpectations(t)
}

// Replaying an already committed withdrawal returns the stored receipt
// without touching the ledger or the settlement service again.
func TestWithdrawReplayCommitted(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 20_000_000)
	repo.withdrawals["wd-key-1"] = &domain.Withdrawal{
		ID: "wd-key-1", CreatorAddress: "creator-1", Amount: 30_000_000,
		State: domain.WithdrawalCommitted, TxID: "tx-done",
	}
	chain := new(mockChain) // Transfer must not be called
	svc := NewLedgerService(repo, chain, realChainCfg(), testLogger())

	receipt, err := svc.Withdraw(context.Background(), "creator-1", 30_000_000, "wd-key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30_000_000), receipt.Withdrawn)
	assert.Equal(t, int64(20_000_000), receipt.RemainingBalance)
	assert.Equal(t, "tx-done", receipt.TxID)
	assert.Equal(t, int64(20_000_000), repo.balanceOf("creator-1"))
	chain.AssertExpectations(t)
}

func TestWithdrawIdempotencyKeyConflict(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 100_000_000)
	repo.withdrawals["wd-key-1"] = &domain.Withdrawal{
		ID: "wd-key-1", CreatorAddress: "creator-1", Amount: 30_000_000,
		State: domain.WithdrawalFailed,
	}
	svc := NewLedgerService(repo, new(mockChain), realChainCfg(), testLogger())

	// Same key, different amount: refuse rather than guess.
	_, err := svc.Withdraw(context.Background(), "creator-1", 40_000_000, "wd-key-1")
	assert.True(t, errors.Is(err, domain.ErrIdempotencyConflict))
	assert.Equal(t, int64(100_000_000), repo.balanceOf("creator-1"))
}

func TestWithdrawUnderfundedOutcome(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 50_000_000)
	chain := new(mockChain)
	chain.On("Transfer", mock.Anything, "platform-escrow", "creator-1", int64(50_000_000), mock.AnythingOfType("string")).
		Return("", domain.ErrEscrowUnderfunded)
	svc := NewLedgerService(repo, chain, realChainCfg(), testLogger())

	before := testutil.ToFloat64(metrics.WithdrawalsTotal.WithLabelValues("escrow_underfunded"))
	_, err := svc.Withdraw(context.Background(), "creator-1", 50_000_000, "")
	require.ErrorIs(t, err, domain.ErrEscrowUnderfunded)
	assert.Equal(t, int64(50_000_000), repo.balanceOf("creator-1"))
	assert.Equal(t, map[domain.WithdrawalState]int{domain.WithdrawalFailed: 1}, repo.withdrawalStates())
	assert.Equal(t, before+1,
		testutil.ToFloat64(metrics.WithdrawalsTotal.WithLabelValues("escrow_underfunded")))
}

// Two concurrent withdrawals of the full balance: exactly one commits,
// exactly one transfer is issued, and the balance never goes negative.
func TestWithdrawConcurrentFullBalance(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 50_000_000)
	chain := new(mockChain)
	chain.On("Transfer", mock.Anything, "platform-escrow", "creator-1", int64(50_000_000), mock.AnythingOfType("string")).
		Return("tx-1", nil)
	svc := NewLedgerService(repo, chain, realChainCfg(), testLogger())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Withdraw(context.Background(), "creator-1", 50_000_000, "")
		}(i)
	}
	wg.Wait()

	var committed, rejected int
	for _, err := range errs {
		var insufficient *domain.InsufficientBalanceError
		switch {
		case err == nil:
			committed++
		case errors.As(err, &insufficient):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)
	assert.Zero(t, repo.balanceOf("creator-1"))
	chain.AssertNumberOfCalls(t, "Transfer", 1)
}

func TestReconcileWithdrawals(t *testing.T) {
	repo := newFakeRepo()
	seedCreator(repo, "creator-1", 80_000_000)
	// A crash between transfer confirmation and debit leaves the row in
	// the transferring state with its tx id recorded.
	repo.withdrawals["w1"] = &domain.Withdrawal{
		ID: "w1", CreatorAddress: "creator-1", Amount: 30_000_000,
		State: domain.WithdrawalTransferring, TxID: "tx-crash",
	}
	svc := NewLedgerService(repo, new(mockChain), realChainCfg(), testLogger())

	n, err := svc.ReconcileWithdrawals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(50_000_000), repo.balanceOf("creator-1"))

	// A second pass finds nothing; the debit is applied exactly once.
	n, err = svc.ReconcileWithdrawals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(50_000_000), repo.balanceOf("creator-1"))
}

func TestEarningsRequiresCreatorRole(t *testing.T) {
	repo := newFakeRepo()
	seedBrand(t, repo, "brand-1")
	seedCreator(repo, "creator-1", 7)
	svc := NewLedgerService(repo, new(mockChain), simulatedChainCfg(), testLogger())

	_, err := svc.Earnings(context.Background(), "brand-1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	e, err := svc.Earnings(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.Balance)
}
