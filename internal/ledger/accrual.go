/*

This file contains the pure accrual function. Every participant-facing
operation settles a position through it before applying its own effect, so
the formula has to be total: defined for all inputs, including a zero stake
and a clock that has not advanced since the last checkpoint.

*/

package ledger

import (
	sdkmath "cosmossdk.io/math"
)

// Settle computes the reward earned on stakedAmount between lastCheckpoint
// and now at ratePerSec, and returns the raw (still precision-scaled) reward
// together with the new checkpoint.
//
// The zero branch folds "no previous stake" and "clock did not advance" into
// one case: no reward, checkpoint advances to now. Advancing the checkpoint
// even when nothing accrued prevents a stale comparison once a deposit lands
// at the same observed instant.
//
// The product stake x elapsed x rate is overflow-checked; on range
// exceedance Settle fails with ErrOverflow rather than wrapping.
func Settle(stakedAmount sdkmath.Int, lastCheckpoint int64, ratePerSec sdkmath.Int, now int64) (sdkmath.Int, int64, error) {
	if stakedAmount.IsNil() || ratePerSec.IsNil() {
		return sdkmath.ZeroInt(), now, nil
	}
	if stakedAmount.IsZero() || now <= lastCheckpoint {
		return sdkmath.ZeroInt(), now, nil
	}

	elapsed := sdkmath.NewInt(now - lastCheckpoint)

	reward, err := SafeMul(stakedAmount, elapsed)
	if err != nil {
		return sdkmath.ZeroInt(), now, err
	}
	reward, err = SafeMul(reward, ratePerSec)
	if err != nil {
		return sdkmath.ZeroInt(), now, err
	}

	return reward, now, nil
}
