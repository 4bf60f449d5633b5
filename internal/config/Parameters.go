/*

This file contains the default pool parameters. Each value has been chosen
so a fresh deployment behaves safely before any operator tuning.

*/

package config

const (
	// DefaultStakeDenom is the base asset participants deposit.
	DefaultStakeDenom = "ustake"

	// DefaultRewardDenom is the asset participants receive as reward.
	DefaultRewardDenom = "ureward"

	// DefaultRewardPrecision is the fixed-point precision of the reward rate.
	// The reward asset carries 9 decimals, so a rate of 10^9 means one whole
	// reward unit per staked unit per second. The raw accrual product is
	// divided by 10^9 exactly once, at issuance time.
	DefaultRewardPrecision = 9

	// DefaultMinRetainedBalance is the residual custody balance at or below
	// which an emptied position is deallocated. Zero means every successful
	// unstake closes the position; a nonzero value keeps positions alive when
	// out-of-band deposits left meaningful dust in custody.
	DefaultMinRetainedBalance uint64 = 0
)
