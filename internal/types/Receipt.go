/*

This file contains the receipt type recorded for every mutating ledger
operation. Receipts are journaled to the database alongside position state
so operators can reconstruct what happened and when.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// OperationType defines the mutating ledger operations.
type OperationType string

const (
	OpInitialize OperationType = "INITIALIZE"
	OpStake      OperationType = "STAKE"
	OpClaim      OperationType = "CLAIM"
	OpUnstake    OperationType = "UNSTAKE"
)

// Receipt records the outcome of a single ledger operation.
type Receipt struct {
	ID           string        `json:"id"` // uuid
	Operation    OperationType `json:"operation"`
	Owner        string        `json:"owner"`
	Amount       sdkmath.Int   `json:"amount"`        // base asset moved (staked or returned)
	RewardIssued sdkmath.Int   `json:"reward_issued"` // reward units issued by this operation
	Timestamp    time.Time     `json:"timestamp"`
}
