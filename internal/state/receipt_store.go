// ./internal/state/receipt_store.go
package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/staking-ledger/internal/types"
)

// insertReceipt writes an operation receipt inside an existing transaction.
func insertReceipt(tx *sql.Tx, rcpt types.Receipt) error {
	stmt := `
		INSERT INTO operation_receipts (
			receipt_id, operation, owner, amount, reward_issued, operation_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := tx.Exec(stmt,
		rcpt.ID, string(rcpt.Operation), rcpt.Owner,
		rcpt.Amount.String(), rcpt.RewardIssued.String(), rcpt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt %s: %w", rcpt.ID, err)
	}
	return nil
}

// GetRecentReceipts returns the most recent operation receipts, newest first.
func GetRecentReceipts(limit int) ([]types.Receipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := DB.Query(`
		SELECT receipt_id, operation, owner, amount, reward_issued, operation_timestamp
		FROM operation_receipts
		ORDER BY operation_timestamp DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

// GetReceiptsForOwner returns an owner's operation receipts, newest first.
func GetReceiptsForOwner(owner string, limit int) ([]types.Receipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := DB.Query(`
		SELECT receipt_id, operation, owner, amount, reward_issued, operation_timestamp
		FROM operation_receipts
		WHERE owner = $1
		ORDER BY operation_timestamp DESC
		LIMIT $2;`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts for %s: %w", owner, err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

func scanReceipts(rows *sql.Rows) ([]types.Receipt, error) {
	var receipts []types.Receipt
	for rows.Next() {
		var (
			rcpt      types.Receipt
			op        string
			amountStr string
			rewardStr string
		)
		if err := rows.Scan(&rcpt.ID, &op, &rcpt.Owner, &amountStr, &rewardStr, &rcpt.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		amount, ok := sdkmath.NewIntFromString(amountStr)
		if !ok {
			return nil, fmt.Errorf("failed to parse receipt amount: %s", amountStr)
		}
		reward, ok := sdkmath.NewIntFromString(rewardStr)
		if !ok {
			return nil, fmt.Errorf("failed to parse receipt reward: %s", rewardStr)
		}
		rcpt.Operation = types.OperationType(op)
		rcpt.Amount = amount
		rcpt.RewardIssued = reward
		receipts = append(receipts, rcpt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}
