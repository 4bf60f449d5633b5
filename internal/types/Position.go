/*

This file contains the type for a participant's staking position: the amount
currently deposited and the last instant up to which rewards were settled.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Position is the per-participant staking record. One position per owner,
// created lazily on first stake and deallocated once emptied.
type Position struct {
	Owner          string      `json:"owner"`
	PoolID         PoolID      `json:"pool_id"`
	StakedAmount   sdkmath.Int `json:"staked_amount"`   // base-asset units held in custody for this position
	LastCheckpoint int64       `json:"last_checkpoint"` // unix seconds, monotonically non-decreasing
}

// CustodyAccount returns the account that physically holds the position's
// deposited base asset.
func (p Position) CustodyAccount() string {
	return "stake/" + p.Owner
}

// PositionOrigin tags whether a stake operation found an existing position
// or created a fresh one for the owner.
type PositionOrigin string

const (
	PositionExisting PositionOrigin = "EXISTING"
	PositionCreated  PositionOrigin = "CREATED"
)
