/*

This file contains the staking ledger engine: the pool singleton, the
per-owner position map and the four operations (initialize, stake, claim,
unstake). Every participant-facing operation settles the position before
applying its own effect. Operations validate amounts, overflow and custody
balances before any external side effect, then commit the position through
a working copy, so a failure at any step leaves the ledger untouched.

*/

package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/staking-ledger/internal/logger"
	"github.com/elys-network/staking-ledger/internal/mint"
	"github.com/elys-network/staking-ledger/internal/types"
	"github.com/elys-network/staking-ledger/internal/utils"
)

// Clock supplies the trusted, monotonically non-decreasing time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the OS clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Custody moves base-asset units between a participant and the custody
// account backing their position.
type Custody interface {
	Transfer(from, to string, amount sdk.Coin) error
	Balance(account, denom string) sdkmath.Int
}

// Issuer mints reward-asset units to a target identity when presented with
// the pool's issuance authority.
type Issuer interface {
	Issue(to string, amount sdkmath.Int, auth *mint.Authority) error
}

// Store journals pool and position state. Journal writes are best-effort
// observability: the engine, custody and mint hold the authoritative state,
// and a journal failure is logged rather than unwinding an operation whose
// asset movements already happened.
type Store interface {
	SavePool(pool types.Pool, rcpt types.Receipt) error
	SavePosition(pos types.Position, rcpt types.Receipt) error
	DeletePosition(owner string, rcpt types.Receipt) error
}

// NopStore discards all journal writes.
type NopStore struct{}

func (NopStore) SavePool(types.Pool, types.Receipt) error         { return nil }
func (NopStore) SavePosition(types.Position, types.Receipt) error { return nil }
func (NopStore) DeletePosition(string, types.Receipt) error       { return nil }

// Engine owns the pool and all positions. Single writer per position: all
// mutations run under one mutex and each operation is a complete unit of
// work.
type Engine struct {
	logger  zerolog.Logger
	custody Custody
	issuer  Issuer
	store   Store
	clock   Clock

	// minRetained is the residual custody balance at or below which an
	// emptied position is deallocated and swept back to its owner.
	minRetained sdkmath.Int

	mu        sync.Mutex
	pool      *types.Pool
	authority *mint.Authority
	positions map[string]*types.Position
}

// Config holds the dependencies for creating a new Engine instance.
type Config struct {
	Custody            Custody
	Issuer             Issuer
	Store              Store
	Clock              Clock
	MinRetainedBalance sdkmath.Int
}

// NewEngine creates an engine with dependency injection.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Custody == nil {
		return nil, fmt.Errorf("custody service cannot be nil")
	}
	if cfg.Issuer == nil {
		return nil, fmt.Errorf("issuer service cannot be nil")
	}
	if cfg.Store == nil {
		cfg.Store = NopStore{}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.MinRetainedBalance.IsNil() {
		cfg.MinRetainedBalance = sdkmath.ZeroInt()
	}
	return &Engine{
		logger:      logger.GetForComponent("ledger_engine"),
		custody:     cfg.Custody,
		issuer:      cfg.Issuer,
		store:       cfg.Store,
		clock:       cfg.Clock,
		minRetained: cfg.MinRetainedBalance,
		positions:   make(map[string]*types.Position),
	}, nil
}

// InitPoolParams holds the one-time pool configuration.
type InitPoolParams struct {
	Authority         string
	StakeDenom        string
	RewardDenom       string
	RewardRatePerSec  sdkmath.Int
	RewardPrecision   int
	IssuanceAuthority *mint.Authority
}

// InitializePool creates the pool singleton. The reward rate is fixed here
// and never mutated afterwards; a different rate means a new pool, not an
// update, so unsettled positions can never be repriced retroactively.
func (e *Engine) InitializePool(params InitPoolParams) (types.Pool, error) {
	if params.Authority == "" {
		return types.Pool{}, fmt.Errorf("%w: pool authority is required", ErrUnauthorized)
	}
	if params.IssuanceAuthority == nil {
		return types.Pool{}, fmt.Errorf("%w: issuance authority is required", ErrUnauthorized)
	}
	if params.StakeDenom == "" || params.RewardDenom == "" {
		return types.Pool{}, fmt.Errorf("%w: stake and reward denoms are required", ErrInvalidAmount)
	}
	if params.RewardRatePerSec.IsNil() || params.RewardRatePerSec.IsNegative() {
		return types.Pool{}, fmt.Errorf("%w: reward rate must be non-negative", ErrInvalidAmount)
	}
	if _, err := utils.ScalingFactor(params.RewardPrecision); err != nil {
		return types.Pool{}, fmt.Errorf("invalid reward precision: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		return types.Pool{}, ErrAlreadyInitialized
	}

	now := e.clock.Now().Unix()
	pool := types.Pool{
		ID:               types.DefaultPoolID,
		Authority:        params.Authority,
		StakeDenom:       params.StakeDenom,
		RewardDenom:      params.RewardDenom,
		RewardAuthority:  "mint/" + params.RewardDenom,
		RewardRatePerSec: params.RewardRatePerSec,
		RewardPrecision:  params.RewardPrecision,
		CreatedAt:        now,
	}
	e.pool = &pool
	e.authority = params.IssuanceAuthority

	rcpt := e.newReceipt(types.OpInitialize, params.Authority, sdkmath.ZeroInt(), sdkmath.ZeroInt(), now)
	if err := e.store.SavePool(pool, rcpt); err != nil {
		e.logger.Error().Err(err).Msg("Failed to journal pool initialization")
	}

	e.logger.Info().
		Str("authority", pool.Authority).
		Str("stakeDenom", pool.StakeDenom).
		Str("rewardDenom", pool.RewardDenom).
		Str("ratePerSec", pool.RewardRatePerSec.String()).
		Int("precision", pool.RewardPrecision).
		Msg("Staking pool initialized")

	return pool, nil
}

// Restore loads a previously journaled pool and its positions, typically at
// process startup. The issuance authority is re-granted by the mint for the
// current process lifetime.
func (e *Engine) Restore(pool types.Pool, auth *mint.Authority, positions []types.Position) error {
	if auth == nil {
		return fmt.Errorf("%w: issuance authority is required", ErrUnauthorized)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		return ErrAlreadyInitialized
	}

	e.pool = &pool
	e.authority = auth
	for i := range positions {
		pos := positions[i]
		e.positions[pos.Owner] = &pos
	}

	e.logger.Info().
		Int("positions", len(positions)).
		Str("rewardDenom", pool.RewardDenom).
		Msg("Staking pool restored from journal")

	return nil
}

// Stake settles any pending reward, moves the deposit into custody and folds
// it into the position. The settled reward is issued before the new deposit
// is added, so a deposit never earns retroactive credit for the window that
// closed at the same instant.
func (e *Engine) Stake(owner string, amount sdkmath.Int) (types.Position, types.PositionOrigin, error) {
	if owner == "" {
		return types.Position{}, "", fmt.Errorf("%w: owner identity is required", ErrUnauthorized)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return types.Position{}, "", ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool == nil {
		return types.Position{}, "", ErrPoolNotInitialized
	}
	now := e.clock.Now().Unix()

	work, origin := e.getOrCreateLocked(owner, now)

	raw, checkpoint, err := Settle(work.StakedAmount, work.LastCheckpoint, e.pool.RewardRatePerSec, now)
	if err != nil {
		return types.Position{}, origin, fmt.Errorf("settlement failed: %w", err)
	}
	reward, err := utils.ScaleReward(raw, e.pool.RewardPrecision)
	if err != nil {
		return types.Position{}, origin, fmt.Errorf("reward scaling failed: %w", err)
	}

	// All failure conditions are checked before the first side effect:
	// balance addition overflow and the depositor's spendable funds.
	newStaked, err := SafeAdd(work.StakedAmount, amount)
	if err != nil {
		return types.Position{}, origin, err
	}
	if e.custody.Balance(owner, e.pool.StakeDenom).LT(amount) {
		return types.Position{}, origin, fmt.Errorf("%w: depositor holds less than %s %s",
			ErrInsufficientBalance, amount.String(), e.pool.StakeDenom)
	}

	// Issue the settled reward for the closed window, then take custody of
	// the new deposit.
	if reward.IsPositive() {
		if err := e.issuer.Issue(owner, reward, e.authority); err != nil {
			return types.Position{}, origin, fmt.Errorf("reward issuance failed: %w", err)
		}
		e.logger.Debug().
			Str("owner", owner).
			Str("reward", reward.String()).
			Msg("Settled pending reward before new stake")
	}
	if err := e.custody.Transfer(owner, work.CustodyAccount(), sdk.NewCoin(e.pool.StakeDenom, amount)); err != nil {
		return types.Position{}, origin, fmt.Errorf("deposit transfer failed: %w", err)
	}

	work.StakedAmount = newStaked
	work.LastCheckpoint = checkpoint

	rcpt := e.newReceipt(types.OpStake, owner, amount, reward, now)
	if err := e.store.SavePosition(work, rcpt); err != nil {
		e.logger.Error().Err(err).Str("owner", owner).Msg("Failed to journal stake")
	}
	e.positions[owner] = &work

	e.logger.Info().
		Str("owner", owner).
		Str("amount", amount.String()).
		Str("totalStaked", work.StakedAmount.String()).
		Str("origin", string(origin)).
		Msg("Stake processed")

	return work, origin, nil
}

// Claim settles and issues the reward accrued since the last checkpoint.
// A zero reward is a successful no-op that still advances the checkpoint.
// The staked amount is untouched.
func (e *Engine) Claim(owner string) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool == nil {
		return sdkmath.ZeroInt(), ErrPoolNotInitialized
	}
	pos, ok := e.positions[owner]
	if !ok || pos.StakedAmount.IsZero() {
		return sdkmath.ZeroInt(), ErrNoStakedBalance
	}
	now := e.clock.Now().Unix()

	work := *pos
	raw, checkpoint, err := Settle(work.StakedAmount, work.LastCheckpoint, e.pool.RewardRatePerSec, now)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("settlement failed: %w", err)
	}
	reward, err := utils.ScaleReward(raw, e.pool.RewardPrecision)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("reward scaling failed: %w", err)
	}

	if reward.IsPositive() {
		if err := e.issuer.Issue(owner, reward, e.authority); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("reward issuance failed: %w", err)
		}
	}

	work.LastCheckpoint = checkpoint

	rcpt := e.newReceipt(types.OpClaim, owner, sdkmath.ZeroInt(), reward, now)
	if err := e.store.SavePosition(work, rcpt); err != nil {
		e.logger.Error().Err(err).Str("owner", owner).Msg("Failed to journal claim")
	}
	*pos = work

	e.logger.Info().
		Str("owner", owner).
		Str("reward", reward.String()).
		Msg("Claim processed")

	return reward, nil
}

// Unstake returns the full staked amount to the owner. It does not settle:
// claiming is a separate call by design, keeping the custody transfer
// independent of the issuance path; accrual since the last checkpoint is
// forfeited. An emptied position whose residual custody footprint is at or
// below the retained minimum is swept and deallocated.
func (e *Engine) Unstake(owner string) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool == nil {
		return sdkmath.ZeroInt(), ErrPoolNotInitialized
	}
	pos, ok := e.positions[owner]
	if !ok || pos.StakedAmount.IsZero() {
		return sdkmath.ZeroInt(), ErrNoStakedBalance
	}
	now := e.clock.Now().Unix()

	custodyAcct := pos.CustodyAccount()
	backing := e.custody.Balance(custodyAcct, e.pool.StakeDenom)
	if backing.LT(pos.StakedAmount) {
		// Custody was interfered with out-of-band; refuse to partially pay out.
		return sdkmath.ZeroInt(), fmt.Errorf("%w: custody holds %s, position records %s",
			ErrInsufficientBalance, backing.String(), pos.StakedAmount.String())
	}

	returned := pos.StakedAmount
	if err := e.custody.Transfer(custodyAcct, owner, sdk.NewCoin(e.pool.StakeDenom, returned)); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("unstake transfer failed: %w", err)
	}

	work := *pos
	work.StakedAmount = sdkmath.ZeroInt()
	work.LastCheckpoint = now

	rcpt := e.newReceipt(types.OpUnstake, owner, returned, sdkmath.ZeroInt(), now)

	residual := e.custody.Balance(custodyAcct, e.pool.StakeDenom)
	if residual.LTE(e.minRetained) {
		if residual.IsPositive() {
			if err := e.custody.Transfer(custodyAcct, owner, sdk.NewCoin(e.pool.StakeDenom, residual)); err != nil {
				e.logger.Warn().Err(err).Str("owner", owner).Msg("Residual sweep failed, keeping empty position")
				e.commitLocked(owner, work, rcpt)
				return returned, nil
			}
		}
		delete(e.positions, owner)
		if err := e.store.DeletePosition(owner, rcpt); err != nil {
			e.logger.Error().Err(err).Str("owner", owner).Msg("Failed to journal position deallocation")
		}
		e.logger.Info().
			Str("owner", owner).
			Str("returned", returned.String()).
			Msg("Unstake processed, position deallocated")
		return returned, nil
	}

	e.commitLocked(owner, work, rcpt)
	e.logger.Info().
		Str("owner", owner).
		Str("returned", returned.String()).
		Str("residual", residual.String()).
		Msg("Unstake processed, position retained for residual custody")
	return returned, nil
}

// PreviewReward computes the reward a claim would issue right now, without
// mutating anything. This is the only call that is safe to retry blindly.
func (e *Engine) PreviewReward(owner string) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool == nil {
		return sdkmath.ZeroInt(), ErrPoolNotInitialized
	}
	pos, ok := e.positions[owner]
	if !ok || pos.StakedAmount.IsZero() {
		return sdkmath.ZeroInt(), ErrNoStakedBalance
	}

	raw, _, err := Settle(pos.StakedAmount, pos.LastCheckpoint, e.pool.RewardRatePerSec, e.clock.Now().Unix())
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return utils.ScaleReward(raw, e.pool.RewardPrecision)
}

// Pool returns the pool configuration, if initialized.
func (e *Engine) Pool() (types.Pool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pool == nil {
		return types.Pool{}, false
	}
	return *e.pool, true
}

// Position returns the owner's position, if one exists.
func (e *Engine) Position(owner string) (types.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.positions[owner]
	if !ok {
		return types.Position{}, false
	}
	return *pos, true
}

// Positions returns all live positions sorted by owner.
func (e *Engine) Positions() []types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Position, 0, len(e.positions))
	for _, pos := range e.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// getOrCreateLocked returns a working copy of the owner's position, creating
// a fresh record with the checkpoint stamped at now on first stake.
func (e *Engine) getOrCreateLocked(owner string, now int64) (types.Position, types.PositionOrigin) {
	if pos, ok := e.positions[owner]; ok {
		return *pos, types.PositionExisting
	}
	return types.Position{
		Owner:          owner,
		PoolID:         e.pool.ID,
		StakedAmount:   sdkmath.ZeroInt(),
		LastCheckpoint: now,
	}, types.PositionCreated
}

func (e *Engine) commitLocked(owner string, work types.Position, rcpt types.Receipt) {
	if err := e.store.SavePosition(work, rcpt); err != nil {
		e.logger.Error().Err(err).Str("owner", owner).Msg("Failed to journal position update")
	}
	e.positions[owner] = &work
}

func (e *Engine) newReceipt(op types.OperationType, owner string, amount, reward sdkmath.Int, now int64) types.Receipt {
	return types.Receipt{
		ID:           uuid.NewString(),
		Operation:    op,
		Owner:        owner,
		Amount:       amount,
		RewardIssued: reward,
		Timestamp:    time.Unix(now, 0).UTC(),
	}
}
