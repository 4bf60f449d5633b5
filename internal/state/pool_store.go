// ./internal/state/pool_store.go
package state

import (
	"database/sql"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/staking-ledger/internal/types"
)

// upsertPool writes the pool row inside an existing transaction. The rate is
// stored as NUMERIC text so no integer width is ever silently truncated.
func upsertPool(tx *sql.Tx, pool types.Pool) error {
	stmt := `
		INSERT INTO pools (
			pool_id, authority, stake_denom, reward_denom,
			reward_authority, reward_rate_per_sec, reward_precision, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pool_id) DO UPDATE SET
			authority = EXCLUDED.authority,
			stake_denom = EXCLUDED.stake_denom,
			reward_denom = EXCLUDED.reward_denom,
			reward_authority = EXCLUDED.reward_authority,
			reward_rate_per_sec = EXCLUDED.reward_rate_per_sec,
			reward_precision = EXCLUDED.reward_precision,
			created_at = EXCLUDED.created_at;`

	_, err := tx.Exec(stmt,
		uint64(pool.ID), pool.Authority, pool.StakeDenom, pool.RewardDenom,
		pool.RewardAuthority, pool.RewardRatePerSec.String(), pool.RewardPrecision, pool.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pool %d: %w", pool.ID, err)
	}
	return nil
}

// LoadPool reads the journaled pool configuration. Returns (nil, nil) when no
// pool has been initialized yet.
func LoadPool() (*types.Pool, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
		SELECT pool_id, authority, stake_denom, reward_denom,
		       reward_authority, reward_rate_per_sec, reward_precision, created_at
		FROM pools
		ORDER BY pool_id
		LIMIT 1;`

	var (
		pool    types.Pool
		poolID  uint64
		rateStr string
	)
	err := DB.QueryRow(stmt).Scan(
		&poolID, &pool.Authority, &pool.StakeDenom, &pool.RewardDenom,
		&pool.RewardAuthority, &rateStr, &pool.RewardPrecision, &pool.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}

	rate, ok := sdkmath.NewIntFromString(rateStr)
	if !ok {
		return nil, fmt.Errorf("failed to parse journaled reward rate: %s", rateStr)
	}
	pool.ID = types.PoolID(poolID)
	pool.RewardRatePerSec = rate

	return &pool, nil
}
