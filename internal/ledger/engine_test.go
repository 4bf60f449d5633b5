package ledger_test

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/staking-ledger/internal/bank"
	"github.com/elys-network/staking-ledger/internal/ledger"
	"github.com/elys-network/staking-ledger/internal/mint"
	"github.com/elys-network/staking-ledger/internal/types"
)

const (
	stakeDenom  = "ustake"
	rewardDenom = "ureward"
	alice       = "alice"
	bob         = "bob"
)

// fakeClock lets tests pin and advance the trusted time source.
type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() time.Time { return time.Unix(c.now, 0).UTC() }

func (c *fakeClock) advance(seconds int64) { c.now += seconds }

type fixture struct {
	engine  *ledger.Engine
	custody *bank.Ledger
	mint    *mint.Mint
	clock   *fakeClock
}

// newFixture builds an initialized engine with alice and bob funded.
// Rate is in whole units per staked unit per second (precision 0) unless a
// precision is supplied.
func newFixture(t *testing.T, rate int64, precision int) *fixture {
	t.Helper()

	custody := bank.NewLedger()
	require.NoError(t, custody.Fund(alice, sdk.NewCoin(stakeDenom, sdkmath.NewInt(1_000_000))))
	require.NoError(t, custody.Fund(bob, sdk.NewCoin(stakeDenom, sdkmath.NewInt(1_000_000))))

	rewardMint, authority := mint.New(rewardDenom)
	clock := &fakeClock{now: 0}

	engine, err := ledger.NewEngine(ledger.Config{
		Custody: custody,
		Issuer:  rewardMint,
		Clock:   clock,
	})
	require.NoError(t, err)

	_, err = engine.InitializePool(ledger.InitPoolParams{
		Authority:         "admin",
		StakeDenom:        stakeDenom,
		RewardDenom:       rewardDenom,
		RewardRatePerSec:  sdkmath.NewInt(rate),
		RewardPrecision:   precision,
		IssuanceAuthority: authority,
	})
	require.NoError(t, err)

	return &fixture{engine: engine, custody: custody, mint: rewardMint, clock: clock}
}

func TestInitializePoolTwice(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, authority := mint.New(rewardDenom)
	_, err := f.engine.InitializePool(ledger.InitPoolParams{
		Authority:         "admin",
		StakeDenom:        stakeDenom,
		RewardDenom:       rewardDenom,
		RewardRatePerSec:  sdkmath.OneInt(),
		IssuanceAuthority: authority,
	})
	require.ErrorIs(t, err, ledger.ErrAlreadyInitialized)
}

func TestStakeBeforePoolInitialized(t *testing.T) {
	custody := bank.NewLedger()
	rewardMint, _ := mint.New(rewardDenom)
	engine, err := ledger.NewEngine(ledger.Config{Custody: custody, Issuer: rewardMint})
	require.NoError(t, err)

	_, _, err = engine.Stake(alice, sdkmath.NewInt(100))
	require.ErrorIs(t, err, ledger.ErrPoolNotInitialized)
}

func TestStakeCreatesPosition(t *testing.T) {
	f := newFixture(t, 1, 0)

	pos, origin, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, types.PositionCreated, origin)
	require.Equal(t, sdkmath.NewInt(100), pos.StakedAmount)
	require.Equal(t, int64(0), pos.LastCheckpoint)

	// Deposit left the owner's account and landed in custody.
	require.Equal(t, sdkmath.NewInt(999_900), f.custody.Balance(alice, stakeDenom))
	require.Equal(t, sdkmath.NewInt(100), f.custody.Balance(pos.CustodyAccount(), stakeDenom))

	// First stake issues nothing.
	require.True(t, f.mint.BalanceOf(alice).IsZero())
}

func TestStakeRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, _, err := f.engine.Stake(alice, sdkmath.ZeroInt())
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, _, err = f.engine.Stake(alice, sdkmath.NewInt(-5))
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, _, err = f.engine.Stake(alice, sdkmath.Int{})
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestStakeRejectsUnfundedDepositor(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, _, err := f.engine.Stake("mallory", sdkmath.NewInt(100))
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, ok := f.engine.Position("mallory")
	require.False(t, ok)
}

func TestNoRetroactiveCredit(t *testing.T) {
	// Stake 100 at t=0 with rate=1; topping up 50 at t=10 must issue exactly
	// 100x10x1 = 1000 for the original 100 before the 150 total starts a
	// fresh window.
	f := newFixture(t, 1, 0)

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	f.clock.advance(10)
	pos, origin, err := f.engine.Stake(alice, sdkmath.NewInt(50))
	require.NoError(t, err)
	require.Equal(t, types.PositionExisting, origin)
	require.Equal(t, sdkmath.NewInt(150), pos.StakedAmount)
	require.Equal(t, int64(10), pos.LastCheckpoint)
	require.Equal(t, sdkmath.NewInt(1_000), f.mint.BalanceOf(alice))

	// The next window accrues on 150.
	f.clock.advance(10)
	reward, err := f.engine.Claim(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_500), reward)
	require.Equal(t, sdkmath.NewInt(2_500), f.mint.BalanceOf(alice))
}

func TestClaimIdempotentWithinSameInstant(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	f.clock.advance(20)
	first, err := f.engine.Claim(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(2_000), first)

	second, err := f.engine.Claim(alice)
	require.NoError(t, err)
	require.True(t, second.IsZero())
	require.Equal(t, sdkmath.NewInt(2_000), f.mint.BalanceOf(alice))
}

func TestClaimWithoutPosition(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, err := f.engine.Claim(alice)
	require.ErrorIs(t, err, ledger.ErrNoStakedBalance)
}

func TestClaimZeroRewardStillAdvancesCheckpoint(t *testing.T) {
	// 1 unit at a precision-9 rate accrues below one issuable unit; the
	// claim succeeds as a no-op and the window still closes.
	f := newFixture(t, 1, 9)

	_, _, err := f.engine.Stake(alice, sdkmath.OneInt())
	require.NoError(t, err)

	f.clock.advance(5)
	reward, err := f.engine.Claim(alice)
	require.NoError(t, err)
	require.True(t, reward.IsZero())

	pos, ok := f.engine.Position(alice)
	require.True(t, ok)
	require.Equal(t, int64(5), pos.LastCheckpoint)
}

func TestRewardPrecisionDividedOutOnce(t *testing.T) {
	// Rate 5x10^8 at precision 9 is half a reward unit per staked unit per
	// second: 10 staked for 3 seconds yields 15.
	f := newFixture(t, 500_000_000, 9)

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(10))
	require.NoError(t, err)

	f.clock.advance(3)
	reward, err := f.engine.Claim(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(15), reward)
}

func TestUnstakeZeroesBalanceAndDeallocates(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	f.clock.advance(10)
	returned, err := f.engine.Unstake(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(100), returned)
	require.Equal(t, sdkmath.NewInt(1_000_000), f.custody.Balance(alice, stakeDenom))

	// Position is gone; follow-up operations fail.
	_, ok := f.engine.Position(alice)
	require.False(t, ok)

	_, err = f.engine.Claim(alice)
	require.ErrorIs(t, err, ledger.ErrNoStakedBalance)

	_, err = f.engine.Unstake(alice)
	require.ErrorIs(t, err, ledger.ErrNoStakedBalance)
}

func TestUnstakeForfeitsUnclaimedAccrual(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	f.clock.advance(30)
	_, err = f.engine.Unstake(alice)
	require.NoError(t, err)

	// No reward was issued for the open window.
	require.True(t, f.mint.BalanceOf(alice).IsZero())

	// Re-staking starts a clean accrual window at the current instant.
	pos, origin, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, types.PositionCreated, origin)
	require.Equal(t, int64(30), pos.LastCheckpoint)
	require.True(t, f.mint.BalanceOf(alice).IsZero())
}

func TestUnstakeDetectsCustodyInterference(t *testing.T) {
	f := newFixture(t, 1, 0)

	pos, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	// Drain part of the custody backing out-of-band.
	require.NoError(t, f.custody.Transfer(pos.CustodyAccount(), bob, sdk.NewCoin(stakeDenom, sdkmath.NewInt(40))))

	_, err = f.engine.Unstake(alice)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The position is untouched so the discrepancy can be investigated.
	got, ok := f.engine.Position(alice)
	require.True(t, ok)
	require.Equal(t, sdkmath.NewInt(100), got.StakedAmount)
}

func TestUnstakeSweepsResidualWithinRetainedMinimum(t *testing.T) {
	custody := bank.NewLedger()
	require.NoError(t, custody.Fund(alice, sdk.NewCoin(stakeDenom, sdkmath.NewInt(1_000))))

	rewardMint, authority := mint.New(rewardDenom)
	clock := &fakeClock{}
	engine, err := ledger.NewEngine(ledger.Config{
		Custody:            custody,
		Issuer:             rewardMint,
		Clock:              clock,
		MinRetainedBalance: sdkmath.NewInt(10),
	})
	require.NoError(t, err)
	_, err = engine.InitializePool(ledger.InitPoolParams{
		Authority:         "admin",
		StakeDenom:        stakeDenom,
		RewardDenom:       rewardDenom,
		RewardRatePerSec:  sdkmath.OneInt(),
		IssuanceAuthority: authority,
	})
	require.NoError(t, err)

	pos, _, err := engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	// Dust deposited into custody out-of-band, at the retained minimum.
	require.NoError(t, custody.Fund(pos.CustodyAccount(), sdk.NewCoin(stakeDenom, sdkmath.NewInt(7))))

	returned, err := engine.Unstake(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(100), returned)

	// Residual swept back to the owner and the position deallocated.
	require.Equal(t, sdkmath.NewInt(1_007), custody.Balance(alice, stakeDenom))
	require.True(t, custody.Balance(pos.CustodyAccount(), stakeDenom).IsZero())
	_, ok := engine.Position(alice)
	require.False(t, ok)
}

func TestUnstakeRetainsPositionAboveMinimum(t *testing.T) {
	f := newFixture(t, 1, 0)

	pos, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	// Substantial out-of-band custody deposit: above the zero retained
	// minimum, so the empty position survives for investigation.
	require.NoError(t, f.custody.Fund(pos.CustodyAccount(), sdk.NewCoin(stakeDenom, sdkmath.NewInt(500))))

	f.clock.advance(1)
	_, err = f.engine.Unstake(alice)
	require.NoError(t, err)

	got, ok := f.engine.Position(alice)
	require.True(t, ok)
	require.True(t, got.StakedAmount.IsZero())
	require.Equal(t, int64(1), got.LastCheckpoint)

	// Empty position still refuses claims and unstakes.
	_, err = f.engine.Claim(alice)
	require.ErrorIs(t, err, ledger.ErrNoStakedBalance)
}

// failingIssuer aborts every issuance.
type failingIssuer struct{}

func (failingIssuer) Issue(string, sdkmath.Int, *mint.Authority) error {
	return errors.New("issuance backend unavailable")
}

func TestStakeAtomicOnIssuanceFailure(t *testing.T) {
	custody := bank.NewLedger()
	require.NoError(t, custody.Fund(alice, sdk.NewCoin(stakeDenom, sdkmath.NewInt(1_000))))

	_, authority := mint.New(rewardDenom)
	clock := &fakeClock{}
	engine, err := ledger.NewEngine(ledger.Config{
		Custody: custody,
		Issuer:  failingIssuer{},
		Clock:   clock,
	})
	require.NoError(t, err)
	_, err = engine.InitializePool(ledger.InitPoolParams{
		Authority:         "admin",
		StakeDenom:        stakeDenom,
		RewardDenom:       rewardDenom,
		RewardRatePerSec:  sdkmath.OneInt(),
		IssuanceAuthority: authority,
	})
	require.NoError(t, err)

	// First stake settles nothing, so no issuance happens and it succeeds.
	_, _, err = engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	// The top-up has a pending reward; the issuance failure must leave the
	// position and custody exactly as they were.
	clock.advance(10)
	_, _, err = engine.Stake(alice, sdkmath.NewInt(50))
	require.Error(t, err)

	pos, ok := engine.Position(alice)
	require.True(t, ok)
	require.Equal(t, sdkmath.NewInt(100), pos.StakedAmount)
	require.Equal(t, int64(0), pos.LastCheckpoint)
	require.Equal(t, sdkmath.NewInt(900), custody.Balance(alice, stakeDenom))
	require.Equal(t, sdkmath.NewInt(100), custody.Balance(pos.CustodyAccount(), stakeDenom))
}

func TestCheckpointMonotonicAcrossOperations(t *testing.T) {
	f := newFixture(t, 1, 0)

	last := int64(-1)
	observe := func() {
		pos, ok := f.engine.Position(alice)
		require.True(t, ok)
		require.GreaterOrEqual(t, pos.LastCheckpoint, last)
		last = pos.LastCheckpoint
	}

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)
	observe()

	f.clock.advance(5)
	_, err = f.engine.Claim(alice)
	require.NoError(t, err)
	observe()

	_, _, err = f.engine.Stake(alice, sdkmath.NewInt(10))
	require.NoError(t, err)
	observe()

	f.clock.advance(1)
	_, _, err = f.engine.Stake(alice, sdkmath.NewInt(10))
	require.NoError(t, err)
	observe()

	f.clock.advance(3)
	_, err = f.engine.Claim(alice)
	require.NoError(t, err)
	observe()
}

func TestPreviewRewardDoesNotMutate(t *testing.T) {
	f := newFixture(t, 1, 0)

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	f.clock.advance(10)
	for i := 0; i < 3; i++ {
		preview, err := f.engine.PreviewReward(alice)
		require.NoError(t, err)
		require.Equal(t, sdkmath.NewInt(1_000), preview)
	}

	// Nothing was issued and the checkpoint did not move.
	require.True(t, f.mint.BalanceOf(alice).IsZero())
	pos, ok := f.engine.Position(alice)
	require.True(t, ok)
	require.Equal(t, int64(0), pos.LastCheckpoint)

	// The claim then issues exactly the previewed amount.
	reward, err := f.engine.Claim(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), reward)
}

func TestPositionsAreIndependent(t *testing.T) {
	f := newFixture(t, 2, 0)

	_, _, err := f.engine.Stake(alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	f.clock.advance(5)
	_, _, err = f.engine.Stake(bob, sdkmath.NewInt(40))
	require.NoError(t, err)

	f.clock.advance(5)
	aliceReward, err := f.engine.Claim(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(2_000), aliceReward) // 100 x 10 x 2

	bobReward, err := f.engine.Claim(bob)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(400), bobReward) // 40 x 5 x 2

	positions := f.engine.Positions()
	require.Len(t, positions, 2)
	require.Equal(t, alice, positions[0].Owner)
	require.Equal(t, bob, positions[1].Owner)
}

func TestRestoreRebuildsState(t *testing.T) {
	custody := bank.NewLedger()
	require.NoError(t, custody.Fund("stake/"+alice, sdk.NewCoin(stakeDenom, sdkmath.NewInt(100))))

	rewardMint, authority := mint.New(rewardDenom)
	clock := &fakeClock{now: 50}
	engine, err := ledger.NewEngine(ledger.Config{Custody: custody, Issuer: rewardMint, Clock: clock})
	require.NoError(t, err)

	pool := types.Pool{
		ID:               types.DefaultPoolID,
		Authority:        "admin",
		StakeDenom:       stakeDenom,
		RewardDenom:      rewardDenom,
		RewardRatePerSec: sdkmath.OneInt(),
	}
	positions := []types.Position{{
		Owner:          alice,
		PoolID:         types.DefaultPoolID,
		StakedAmount:   sdkmath.NewInt(100),
		LastCheckpoint: 40,
	}}
	require.NoError(t, engine.Restore(pool, authority, positions))

	// Restoring twice is initializing twice.
	require.ErrorIs(t, engine.Restore(pool, authority, nil), ledger.ErrAlreadyInitialized)

	// Accrual continues from the journaled checkpoint.
	reward, err := engine.Claim(alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1_000), reward) // 100 x (50-40) x 1
}
