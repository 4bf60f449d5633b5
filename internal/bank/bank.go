/*

This file contains the in-process custody ledger for the base asset. It is
the boundary collaborator that physically moves deposits between a
participant's own account and the custody account backing their position.
Balances are plain denominated coins; there is no notion of reward accrual
here, only conservation of what was funded in.

*/

package bank

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/staking-ledger/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidCoin       = errors.New("coin is invalid")
	ErrInvalidAccount    = errors.New("account is invalid")
)

var bankLogger = logger.GetForComponent("bank")

// Ledger is an in-memory custody ledger keyed by account identity.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]sdk.Coins
}

// NewLedger creates an empty custody ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]sdk.Coins),
	}
}

// Fund credits coins to an account. Used for genesis funding and tests;
// participant-facing flows only ever move existing balances.
func (l *Ledger) Fund(account string, coins ...sdk.Coin) error {
	if account == "" {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, coin := range coins {
		if coin.Amount.IsNil() || coin.Amount.IsNegative() || coin.Denom == "" {
			return fmt.Errorf("%w: %s", ErrInvalidCoin, coin.String())
		}
		l.balances[account] = l.balances[account].Add(coin)
	}
	return nil
}

// Balance returns the account's balance in the given denom.
func (l *Ledger) Balance(account, denom string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account].AmountOf(denom)
}

// Transfer moves amount from one account to another. The debit and credit
// happen under one lock so no observer can see the coins in flight.
func (l *Ledger) Transfer(from, to string, amount sdk.Coin) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if amount.Amount.IsNil() || !amount.Amount.IsPositive() || amount.Denom == "" {
		return fmt.Errorf("%w: %s", ErrInvalidCoin, amount.String())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from].AmountOf(amount.Denom).LT(amount.Amount) {
		return fmt.Errorf("%w: %s has %s, needs %s %s",
			ErrInsufficientFunds, from,
			l.balances[from].AmountOf(amount.Denom).String(),
			amount.Amount.String(), amount.Denom)
	}

	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)

	bankLogger.Debug().
		Str("from", from).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("Transfer executed")

	return nil
}
