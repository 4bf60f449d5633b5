/*

This is the custom type for the staking pool, which holds the deployment-wide
reward configuration. A pool is created exactly once and is never mutated by
any participant-facing operation afterwards.

*/

package types

import (
	"cosmossdk.io/math"
)

type PoolID uint64

// DefaultPoolID is used for the singleton pool of a deployment.
const DefaultPoolID PoolID = 1

type Pool struct {
	ID               PoolID   `json:"id"`
	Authority        string   `json:"authority"`           // administrator that created the pool
	StakeDenom       string   `json:"stake_denom"`         // base asset participants deposit
	RewardDenom      string   `json:"reward_denom"`        // asset participants receive as reward
	RewardAuthority  string   `json:"reward_authority"`    // identity of the issuance capability the pool owns
	RewardRatePerSec math.Int `json:"reward_rate_per_sec"` // scaled reward units per staked unit per second
	RewardPrecision  int      `json:"reward_precision"`    // decimals divided out once at issuance time
	CreatedAt        int64    `json:"created_at"`          // unix seconds
}
