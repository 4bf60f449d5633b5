/*

This file contains the reward issuance service. Minting is gated by an
opaque authority capability granted exactly once when the mint is created;
the staking pool holds that capability and presents it on every issuance
call. Any other token is rejected, which is the in-process analogue of a
program-derived signing authority.

*/

package mint

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/staking-ledger/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrUnauthorized   = errors.New("issuance authority check failed")
	ErrInvalidAmount  = errors.New("issuance amount is invalid")
	ErrInvalidAccount = errors.New("target account is invalid")
)

var mintLogger = logger.GetForComponent("mint")

// Authority is the capability to issue reward units. Holders prove
// authorization by pointer identity; the struct carries no secrets and
// cannot be forged by constructing a new value.
type Authority struct {
	denom string
}

// Denom returns the denom this authority can issue.
func (a *Authority) Denom() string {
	if a == nil {
		return ""
	}
	return a.denom
}

// Mint issues units of a single reward denom and tracks who received what.
type Mint struct {
	mu        sync.Mutex
	denom     string
	authority *Authority
	issued    map[string]sdkmath.Int
	supply    sdkmath.Int
}

// New creates a mint for denom and grants its one issuance authority.
// The authority is returned only here; there is no way to mint another.
func New(denom string) (*Mint, *Authority) {
	auth := &Authority{denom: denom}
	m := &Mint{
		denom:     denom,
		authority: auth,
		issued:    make(map[string]sdkmath.Int),
		supply:    sdkmath.ZeroInt(),
	}
	return m, auth
}

// Denom returns the reward denom this mint issues.
func (m *Mint) Denom() string {
	return m.denom
}

// Issue mints amount reward units to the target account. The presented
// authority must be the one granted at creation.
func (m *Mint) Issue(to string, amount sdkmath.Int, auth *Authority) error {
	if to == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if auth == nil || auth != m.authority {
		return ErrUnauthorized
	}

	current, ok := m.issued[to]
	if !ok {
		current = sdkmath.ZeroInt()
	}
	m.issued[to] = current.Add(amount)
	m.supply = m.supply.Add(amount)

	mintLogger.Debug().
		Str("to", to).
		Str("amount", amount.String()).
		Str("denom", m.denom).
		Msg("Reward issued")

	return nil
}

// BalanceOf returns the total reward units issued to an account.
func (m *Mint) BalanceOf(account string) sdkmath.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bal, ok := m.issued[account]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// Supply returns the total reward units ever issued.
func (m *Mint) Supply() sdkmath.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supply
}
