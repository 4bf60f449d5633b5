package ledger

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace for all staking ledger errors.
const Codespace = "stakeledger"

// Every error below aborts the whole operation with no partial mutation.
// Callers can rely on the kind to distinguish "nothing happened" from
// states requiring investigation (ErrOverflow signals a rate or
// configuration problem, not a retryable condition).
var (
	ErrAlreadyInitialized  = errorsmod.Register(Codespace, 2, "pool is already initialized")
	ErrPoolNotInitialized  = errorsmod.Register(Codespace, 3, "pool is not initialized")
	ErrNoStakedBalance     = errorsmod.Register(Codespace, 4, "no staked balance to unstake or claim rewards")
	ErrInsufficientBalance = errorsmod.Register(Codespace, 5, "custody does not hold enough balance to cover the staked amount")
	ErrOverflow            = errorsmod.Register(Codespace, 6, "arithmetic overflow")
	ErrUnauthorized        = errorsmod.Register(Codespace, 7, "caller is not authorized")
	ErrInvalidAmount       = errorsmod.Register(Codespace, 8, "amount must be a positive integer")
)
