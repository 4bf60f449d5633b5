/*
This file contains helpers for the reward fixed-point convention. The pool's
reward rate is expressed in scaled units with RewardPrecision decimal places;
the scaling factor is divided out exactly once, at the instant a reward is
handed to the issuance service. Truncation remainders are forfeited.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
)

// ScalingFactor returns 10^precision as an SDK Int.
func ScalingFactor(precision int) (sdkmath.Int, error) {
	if precision < 0 || precision > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	factor := sdkmath.NewInt(1)
	ten := sdkmath.NewInt(10)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(ten)
	}
	return factor, nil
}

// ScaleReward converts a raw accrual product (stake x elapsed x rate, in
// scaled units) into issuable reward units by dividing out the precision
// factor. Integer division truncates toward zero.
func ScaleReward(raw sdkmath.Int, precision int) (sdkmath.Int, error) {
	if raw.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if raw.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	factor, err := ScalingFactor(precision)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return raw.Quo(factor), nil
}
