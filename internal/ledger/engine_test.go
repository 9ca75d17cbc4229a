package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"earnLedger/internal/bank"
	"earnLedger/internal/model"
	"earnLedger/internal/registry"
	"earnLedger/internal/storage"
)

var (
	authority  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	earnWallet = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	creator    = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	mintA      = common.HexToAddress("0x000000000000000000000000000000000000a001")
	mintB      = common.HexToAddress("0x000000000000000000000000000000000000a002")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	trader     = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

// hookBank lets a test run code in the middle of the next transfer.
type hookBank struct {
	*bank.Book
	onTransfer func(ctx context.Context) error
}

func (h *hookBank) Transfer(ctx context.Context, asset, from, to common.Address, amount uint64) error {
	if hook := h.onTransfer; hook != nil {
		h.onTransfer = nil
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return h.Book.Transfer(ctx, asset, from, to, amount)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	engine *Engine
	store  storage.Store
	bank   *hookBank
	clock  *clockwork.FakeClock
	sink   *storage.MemorySink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	book := bank.NewBook(2, 1)
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: storage.NewMemoryStore(),
		bank:  &hookBank{Book: book},
		clock: clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0)),
		sink:  &storage.MemorySink{},
	}

	engine, err := New(Config{
		Store:   f.store,
		Bank:    f.bank,
		Swapper: book,
		Burner:  book,
		Sink:    f.sink,
		Clock:   f.clock,
	}, zap.NewNop())
	require.NoError(t, err)
	f.engine = engine

	_, err = engine.InitializeMaster(f.ctx, authority, earnWallet)
	require.NoError(t, err)
	for _, mint := range []common.Address{mintA, mintB} {
		_, err = engine.RegisterAsset(f.ctx, creator, registry.Registration{Mint: mint, FeeBps: 100})
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) fund(asset, holder common.Address, amount uint64) {
	f.t.Helper()
	err := f.store.Update(f.ctx, func(tx storage.Tx) error {
		return f.bank.Mint(storage.WithTx(f.ctx, tx), asset, holder, amount)
	})
	require.NoError(f.t, err)
}

func (f *fixture) balance(asset, holder common.Address) uint64 {
	f.t.Helper()
	var amount uint64
	err := f.store.View(f.ctx, func(tx storage.Tx) error {
		var err error
		amount, err = tx.Balance(asset, holder)
		return err
	})
	require.NoError(f.t, err)
	return amount
}

func (f *fixture) editPool(mint common.Address, edit func(*model.Pool)) {
	f.t.Helper()
	err := f.store.Update(f.ctx, func(tx storage.Tx) error {
		pool, _, err := tx.Pool(mint)
		if err != nil {
			return err
		}
		edit(&pool)
		return tx.PutPool(pool)
	})
	require.NoError(f.t, err)
}

func (f *fixture) eventKinds() []model.EventKind {
	var kinds []model.EventKind
	for _, e := range f.sink.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (f *fixture) stake(mint, owner common.Address, amount uint64) {
	f.t.Helper()
	f.fund(mint, owner, amount)
	require.NoError(f.t, f.engine.Stake(f.ctx, mint, owner, amount))
}

func TestInitializeMasterOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.InitializeMaster(f.ctx, authority, earnWallet)
	require.ErrorIs(t, err, model.ErrMasterAlreadyInitialized)

	master, err := f.engine.Master(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), master.TotalTokensRegistered)
	assert.Equal(t, uint64(2), master.TotalPools)
}

func TestRegisterAssetValidation(t *testing.T) {
	f := newFixture(t)
	short := uint16(3499)
	mintC := common.HexToAddress("0x000000000000000000000000000000000000a003")

	_, err := f.engine.RegisterAsset(f.ctx, creator, registry.Registration{Mint: mintC, FeeBps: 100, StakingCutBps: &short})
	require.ErrorIs(t, err, model.ErrInvalidFeeSplits)

	_, err = f.engine.RegisterAsset(f.ctx, creator, registry.Registration{Mint: mintA, FeeBps: 100})
	require.ErrorIs(t, err, model.ErrTokenAlreadyRegistered)

	_, err = f.engine.Asset(f.ctx, mintC)
	require.ErrorIs(t, err, model.ErrTokenNotRegistered)

	tr, err := f.engine.Treasury(f.ctx, mintA)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), tr.BuybackThreshold)
}

func TestCreatePool(t *testing.T) {
	f := newFixture(t)
	mintC := common.HexToAddress("0x000000000000000000000000000000000000a003")

	_, err := f.engine.CreatePool(f.ctx, alice, PoolParams{Mint: mintC})
	require.ErrorIs(t, err, model.ErrUnauthorized)

	pool, err := f.engine.CreatePool(f.ctx, authority, PoolParams{Mint: mintC, MinStake: 10, CooldownSeconds: 60})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), pool.MinStake)
	assert.True(t, pool.RewardPerShare.IsZero())

	_, err = f.engine.CreatePool(f.ctx, authority, PoolParams{Mint: mintA})
	require.ErrorIs(t, err, model.ErrPoolAlreadyExists)
}

func TestCollectFeeRoutesBuckets(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 10_000)

	split, err := f.engine.CollectFee(f.ctx, mintA, trader, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), split.Total)

	assert.Zero(t, f.balance(model.NativeAsset, trader))
	assert.Equal(t, uint64(1_000), f.balance(model.NativeAsset, earnWallet))
	assert.Equal(t, uint64(2_000), f.balance(model.NativeAsset, creator))
	assert.Equal(t, uint64(3_500), f.balance(model.NativeAsset, storage.TreasuryVault(mintA)))
	assert.Equal(t, uint64(3_500), f.balance(model.NativeAsset, storage.RewardsVault(mintA)))

	asset, err := f.engine.Asset(f.ctx, mintA)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), asset.TotalFeesCollected)
	assert.Equal(t, uint64(1_000), asset.TotalEarnFees)
	assert.Equal(t, uint64(2_000), asset.TotalCreatorFees)

	tr, err := f.engine.Treasury(f.ctx, mintA)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_500), tr.Balance)

	pool, err := f.engine.Pool(f.ctx, mintA)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_500), pool.RewardsAvailable)
	assert.True(t, pool.RewardPerShare.IsZero(), "no stake, accumulator must not move")

	master, err := f.engine.Master(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), master.TotalFeesProcessed)
	assert.Contains(t, f.eventKinds(), model.EventFeeCollected)
}

func TestCollectFeeBelowThresholdIsNoop(t *testing.T) {
	f := newFixture(t)

	split, err := f.engine.CollectFeeFromSwap(f.ctx, mintA, trader, 99)
	require.NoError(t, err)
	assert.True(t, split.IsZero())

	asset, err := f.engine.Asset(f.ctx, mintA)
	require.NoError(t, err)
	assert.Zero(t, asset.TotalFeesCollected)
	assert.NotContains(t, f.eventKinds(), model.EventFeeCollected)
}

func TestCollectFeeInactiveAsset(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.engine.SetAssetActive(f.ctx, alice, mintA, false), model.ErrUnauthorized)
	require.NoError(t, f.engine.SetAssetActive(f.ctx, authority, mintA, false))

	_, err := f.engine.CollectFee(f.ctx, mintA, trader, 1_000_000)
	require.ErrorIs(t, err, model.ErrTokenNotActive)

	_, err = f.engine.CollectFee(f.ctx, mintB, trader, 0)
	require.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestCollectFeeRollsBackOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 5_000)

	_, err := f.engine.CollectFee(f.ctx, mintA, trader, 1_000_000)
	require.ErrorIs(t, err, model.ErrTransferFailed)

	asset, err := f.engine.Asset(f.ctx, mintA)
	require.NoError(t, err)
	assert.Zero(t, asset.TotalFeesCollected)
	assert.Equal(t, uint64(5_000), f.balance(model.NativeAsset, trader))
	assert.Zero(t, f.balance(model.NativeAsset, earnWallet))
}

func TestSettlementOrderIndependence(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 6_000)

	// mintA: 100 then 50 more. mintB: 150 at once. Bob holds 50 in both.
	f.stake(mintA, bob, 50)
	f.stake(mintB, bob, 50)
	f.stake(mintA, alice, 100)
	f.stake(mintA, alice, 50)
	f.stake(mintB, alice, 150)

	require.NoError(t, f.engine.DepositRewards(f.ctx, mintA, trader, 3_000))
	require.NoError(t, f.engine.DepositRewards(f.ctx, mintB, trader, 3_000))

	split, err := f.engine.Unstake(f.ctx, mintA, alice, 150)
	require.NoError(t, err)
	single, err := f.engine.Unstake(f.ctx, mintB, alice, 150)
	require.NoError(t, err)

	assert.Equal(t, single.Reward, split.Reward)
	assert.Equal(t, uint64(2_250), split.Reward)
	assert.Equal(t, uint64(150), f.balance(mintA, alice))
	assert.Equal(t, uint64(150), f.balance(mintB, alice))
	assert.Equal(t, uint64(4_500), f.balance(model.NativeAsset, alice))
}

func TestStakeConservation(t *testing.T) {
	f := newFixture(t)
	f.stake(mintA, alice, 100)
	f.stake(mintA, bob, 40)
	_, err := f.engine.Unstake(f.ctx, mintA, alice, 100)
	require.NoError(t, err)

	pool, err := f.engine.Pool(f.ctx, mintA)
	require.NoError(t, err)
	accounts, err := f.engine.StakeAccounts(f.ctx, mintA)
	require.NoError(t, err)

	var sum uint64
	for _, acct := range accounts {
		sum += acct.StakedAmount
		assert.False(t, acct.Locked)
	}
	assert.Len(t, accounts, 2, "accounts persist at zero balance")
	assert.Equal(t, pool.TotalStaked, sum)
	assert.Equal(t, uint64(1), pool.StakerCount)
	assert.Equal(t, uint64(40), f.balance(mintA, storage.StakeVault(mintA)))

	master, err := f.engine.Master(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), master.TotalStakedValue)
}

func TestStakeRollsBackWhenTransferFails(t *testing.T) {
	f := newFixture(t)
	f.fund(mintA, alice, 10)

	err := f.engine.Stake(f.ctx, mintA, alice, 11)
	require.ErrorIs(t, err, model.ErrTransferFailed)

	pool, err := f.engine.Pool(f.ctx, mintA)
	require.NoError(t, err)
	assert.Zero(t, pool.TotalStaked)
	assert.Zero(t, pool.StakerCount)
	_, err = f.engine.Position(f.ctx, mintA, alice)
	require.ErrorIs(t, err, model.ErrStakeAccountNotFound)
}

func TestStakeRules(t *testing.T) {
	f := newFixture(t)
	paused := true
	minStake := uint64(100)
	_, err := f.engine.ConfigurePool(f.ctx, authority, mintA, PoolSettings{Paused: &paused})
	require.NoError(t, err)

	f.fund(mintA, alice, 1_000)
	require.ErrorIs(t, f.engine.Stake(f.ctx, mintA, alice, 10), model.ErrPoolPaused)

	paused = false
	_, err = f.engine.ConfigurePool(f.ctx, authority, mintA, PoolSettings{Paused: &paused, MinStake: &minStake})
	require.NoError(t, err)
	require.ErrorIs(t, f.engine.Stake(f.ctx, mintA, alice, 99), model.ErrStakeBelowMinimum)
	require.NoError(t, f.engine.Stake(f.ctx, mintA, alice, 100))

	_, err = f.engine.ConfigurePool(f.ctx, alice, mintA, PoolSettings{Paused: &paused})
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestDepositWithoutStakers(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 500)

	require.NoError(t, f.engine.DepositRewards(f.ctx, mintA, trader, 500))
	pool, err := f.engine.Pool(f.ctx, mintA)
	require.NoError(t, err)
	assert.True(t, pool.RewardPerShare.IsZero())
	assert.Equal(t, uint64(500), pool.TotalRewardsDistributed)
	assert.Equal(t, uint64(500), pool.RewardsAvailable)
}

func TestClaimCappedPayout(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 1_000)
	f.stake(mintA, alice, 100)
	require.NoError(t, f.engine.DepositRewards(f.ctx, mintA, trader, 1_000))

	f.editPool(mintA, func(p *model.Pool) { p.RewardsAvailable = 400 })

	pos, err := f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), pos.Pending)

	payout, err := f.engine.ClaimRewards(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), payout.Reward)
	assert.Equal(t, uint64(600), payout.Forfeited)
	assert.Equal(t, uint64(400), f.balance(model.NativeAsset, alice))

	pos, err = f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.Zero(t, pos.Account.AccruedRewards)
	assert.Zero(t, pos.Pending)
	assert.Equal(t, f.clock.Now().Unix(), pos.Account.LastClaimAt)
	assert.Contains(t, f.eventKinds(), model.EventRewardShortfall)

	_, err = f.engine.ClaimRewards(f.ctx, mintA, alice)
	require.ErrorIs(t, err, model.ErrNoRewardsToClaim)
}

func TestUnstakeCappedPayout(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 1_000)
	f.stake(mintA, alice, 100)
	require.NoError(t, f.engine.DepositRewards(f.ctx, mintA, trader, 1_000))

	f.editPool(mintA, func(p *model.Pool) { p.RewardsAvailable = 400 })

	payout, err := f.engine.Unstake(f.ctx, mintA, alice, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), payout.Principal)
	assert.Equal(t, uint64(400), payout.Reward)
	assert.Equal(t, uint64(600), payout.Forfeited)

	assert.Equal(t, uint64(400), f.balance(model.NativeAsset, alice))
	assert.Equal(t, uint64(100), f.balance(mintA, alice))
	assert.Equal(t, uint64(600), f.balance(model.NativeAsset, storage.RewardsVault(mintA)))

	pos, err := f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.Zero(t, pos.Account.StakedAmount)
	assert.Zero(t, pos.Account.AccruedRewards)

	var shortfall *model.Event
	for _, e := range f.sink.Events() {
		e := e
		if e.Kind == model.EventRewardShortfall {
			shortfall = &e
		}
	}
	require.NotNil(t, shortfall)
	assert.Equal(t, uint64(600), shortfall.Amount)
	assert.Equal(t, alice, shortfall.Account)
}

func TestViewDuringTransferSeesRunningOperation(t *testing.T) {
	f := newFixture(t)
	f.fund(mintA, alice, 100)

	var seen Position
	var pool model.Pool
	f.bank.onTransfer = func(ctx context.Context) error {
		var err error
		if seen, err = f.engine.Position(ctx, mintA, alice); err != nil {
			return err
		}
		pool, err = f.engine.Pool(ctx, mintA)
		return err
	}
	require.NoError(t, f.engine.Stake(f.ctx, mintA, alice, 100))

	assert.True(t, seen.Account.Locked)
	assert.Equal(t, uint64(100), pool.TotalStaked)

	pos, err := f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.False(t, pos.Account.Locked)
	assert.Equal(t, uint64(100), pos.Account.StakedAmount)
}

func TestClaimChecksVault(t *testing.T) {
	f := newFixture(t)
	f.stake(mintA, alice, 100)
	// Accounting says 300 is available but nothing backs it.
	f.editPool(mintA, func(p *model.Pool) {
		p.RewardsAvailable = 300
		p.RewardPerShare.SetUint64(3_000_000_000_000_000_000)
	})

	_, err := f.engine.ClaimRewards(f.ctx, mintA, alice)
	require.ErrorIs(t, err, model.ErrInsufficientRewards)

	pos, err := f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), pos.Pending)
	assert.False(t, pos.Account.Locked)
}

func TestCooldownScenario(t *testing.T) {
	f := newFixture(t)
	cooldown := uint64(3600)
	_, err := f.engine.ConfigurePool(f.ctx, authority, mintA, PoolSettings{CooldownSeconds: &cooldown})
	require.NoError(t, err)
	f.stake(mintA, alice, 500)

	_, err = f.engine.Unstake(f.ctx, mintA, alice, 500)
	require.ErrorIs(t, err, model.ErrCooldownNotPassed)

	recorded, err := f.engine.RequestUnstake(f.ctx, mintA, alice, 500)
	require.NoError(t, err)
	assert.True(t, recorded)
	_, err = f.engine.RequestUnstake(f.ctx, mintA, alice, 500)
	require.ErrorIs(t, err, model.ErrAlreadyRequestedUnstake)

	f.clock.Advance(3599 * time.Second)
	_, err = f.engine.Unstake(f.ctx, mintA, alice, 500)
	require.ErrorIs(t, err, model.ErrCooldownNotPassed)

	f.clock.Advance(time.Second)
	pos, err := f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.True(t, pos.CanUnstake)

	_, err = f.engine.Unstake(f.ctx, mintA, alice, 500)
	require.NoError(t, err)

	pos, err = f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.False(t, pos.Account.UnstakePending)
	assert.Zero(t, pos.Account.StakedAmount)
}

func TestCancelUnstake(t *testing.T) {
	f := newFixture(t)
	f.stake(mintA, alice, 10)
	require.ErrorIs(t, f.engine.CancelUnstake(f.ctx, mintA, alice), model.ErrNoUnstakeRequest)

	recorded, err := f.engine.RequestUnstake(f.ctx, mintA, alice, 10)
	require.NoError(t, err)
	assert.False(t, recorded, "no cooldown configured")
}

func TestReentrantClaimIsRejected(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 1_000)
	f.stake(mintA, alice, 100)
	require.NoError(t, f.engine.DepositRewards(f.ctx, mintA, trader, 1_000))

	var nested error
	f.bank.onTransfer = func(ctx context.Context) error {
		_, nested = f.engine.ClaimRewards(ctx, mintA, alice)
		return nil
	}
	f.fund(mintA, alice, 50)
	err := f.engine.Stake(f.ctx, mintA, alice, 50)

	require.ErrorIs(t, nested, model.ErrReentrancy)
	require.ErrorIs(t, nested, model.ErrUnauthorized)
	require.ErrorIs(t, err, model.ErrReentrancy)

	pos, err := f.engine.Position(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.False(t, pos.Account.Locked)
	assert.Equal(t, uint64(100), pos.Account.StakedAmount)
	assert.Equal(t, uint64(1_000), pos.Pending)
	assert.Contains(t, f.eventKinds(), model.EventSecurityAlert)

	// The lock does not linger: the same call succeeds once nothing reenters.
	require.NoError(t, f.engine.Stake(f.ctx, mintA, alice, 50))
	payout, err := f.engine.ClaimRewards(f.ctx, mintA, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), payout.Reward)
}

func TestNestedCallOnOtherAccountJoins(t *testing.T) {
	f := newFixture(t)
	f.fund(mintA, bob, 20)

	f.bank.onTransfer = func(ctx context.Context) error {
		return f.engine.Stake(ctx, mintA, bob, 20)
	}
	f.stake(mintA, alice, 30)

	pool, err := f.engine.Pool(f.ctx, mintA)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), pool.TotalStaked)
	assert.Equal(t, uint64(2), pool.StakerCount)
}

func TestBuybackScenario(t *testing.T) {
	f := newFixture(t)
	f.fund(model.NativeAsset, trader, 100_000_000)

	require.NoError(t, f.engine.DepositTreasury(f.ctx, mintA, trader, 99_999_999))
	_, err := f.engine.ExecuteBuyback(f.ctx, mintA, 99_999_999, 0)
	require.ErrorIs(t, err, model.ErrBelowBuybackThreshold)

	require.NoError(t, f.engine.DepositTreasury(f.ctx, mintA, trader, 1))
	_, err = f.engine.ExecuteBuyback(f.ctx, mintA, 100_000_001, 0)
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	_, err = f.engine.ExecuteBuyback(f.ctx, mintA, 60_000_000, 120_000_001)
	require.ErrorIs(t, err, model.ErrSlippageExceeded)

	result, err := f.engine.ExecuteBuyback(f.ctx, mintA, 60_000_000, 120_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(120_000_000), result.Burned)

	tr, err := f.engine.Treasury(f.ctx, mintA)
	require.NoError(t, err)
	assert.Equal(t, uint64(40_000_000), tr.Balance)
	assert.Equal(t, uint64(60_000_000), tr.TotalBuybacks)
	assert.Equal(t, uint64(120_000_000), tr.TotalBurned)
	assert.Equal(t, f.clock.Now().Unix(), tr.LastBuyback)

	vault := storage.TreasuryVault(mintA)
	assert.Equal(t, uint64(40_000_000), f.balance(model.NativeAsset, vault))
	assert.Zero(t, f.balance(mintA, vault))
}

func TestUpdateRewardsRefreshesTimestamp(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(time.Minute)

	pool, err := f.engine.UpdateRewards(f.ctx, mintA)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Unix(), pool.LastUpdate)
	assert.True(t, pool.RewardPerShare.IsZero())
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	f.stake(mintA, alice, 5)

	snap, err := f.engine.Snapshot(f.ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Assets, 2)
	assert.Len(t, snap.Treasuries, 2)
	assert.Len(t, snap.Pools, 2)
	assert.Len(t, snap.Accounts, 1)
	assert.Equal(t, authority, snap.Master.Authority)
}

func TestSnapshotOnly(t *testing.T) {
	f := newFixture(t)
	f.stake(mintA, alice, 5)
	f.stake(mintB, bob, 7)

	snap, err := f.engine.Snapshot(f.ctx)
	require.NoError(t, err)

	only := snap.Only([]common.Address{mintB})
	require.Len(t, only.Assets, 1)
	assert.Equal(t, mintB, only.Assets[0].Mint)
	require.Len(t, only.Treasuries, 1)
	require.Len(t, only.Pools, 1)
	assert.Equal(t, uint64(7), only.Pools[0].TotalStaked)
	require.Len(t, only.Accounts, 1)
	assert.Equal(t, bob, only.Accounts[0].Owner)
	assert.Equal(t, snap.Master, only.Master)

	assert.Empty(t, snap.Only(nil).Assets)
}
