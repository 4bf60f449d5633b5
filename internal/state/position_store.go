// ./internal/state/position_store.go
package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/staking-ledger/internal/types"
)

// upsertPosition writes a position row inside an existing transaction.
func upsertPosition(tx *sql.Tx, pos types.Position) error {
	stmt := `
		INSERT INTO positions (owner, pool_id, staked_amount, last_checkpoint, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (owner) DO UPDATE SET
			pool_id = EXCLUDED.pool_id,
			staked_amount = EXCLUDED.staked_amount,
			last_checkpoint = EXCLUDED.last_checkpoint,
			updated_at = CURRENT_TIMESTAMP;`

	_, err := tx.Exec(stmt,
		pos.Owner, uint64(pos.PoolID), pos.StakedAmount.String(), pos.LastCheckpoint,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position for %s: %w", pos.Owner, err)
	}
	return nil
}

// deletePosition removes a deallocated position row inside an existing transaction.
func deletePosition(tx *sql.Tx, owner string) error {
	_, err := tx.Exec(`DELETE FROM positions WHERE owner = $1;`, owner)
	if err != nil {
		return fmt.Errorf("failed to delete position for %s: %w", owner, err)
	}
	return nil
}

// LoadPositions reads all journaled positions, typically at process startup.
func LoadPositions() ([]types.Position, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT owner, pool_id, staked_amount, last_checkpoint
		FROM positions
		ORDER BY owner;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []types.Position
	for rows.Next() {
		var (
			pos       types.Position
			poolID    uint64
			amountStr string
		)
		if err := rows.Scan(&pos.Owner, &poolID, &amountStr, &pos.LastCheckpoint); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		amount, ok := sdkmath.NewIntFromString(amountStr)
		if !ok {
			return nil, fmt.Errorf("failed to parse journaled staked amount for %s: %s", pos.Owner, amountStr)
		}
		pos.PoolID = types.PoolID(poolID)
		pos.StakedAmount = amount
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate position rows: %w", err)
	}

	return positions, nil
}
