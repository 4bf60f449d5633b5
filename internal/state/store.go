// ./internal/state/store.go
package state

import (
	"fmt"

	"github.com/elys-network/staking-ledger/internal/types"
)

// PostgresStore journals ledger state to PostgreSQL. Each mutating operation
// writes the position change and its receipt in one transaction, so the
// journal never shows a receipt without the state it produced.
type PostgresStore struct{}

// NewPostgresStore returns a store backed by the global connection pool.
func NewPostgresStore() (*PostgresStore, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return &PostgresStore{}, nil
}

// SavePool journals the pool configuration and its initialization receipt.
func (s *PostgresStore) SavePool(pool types.Pool, rcpt types.Receipt) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if err = upsertPool(tx, pool); err != nil {
		return err
	}
	if err = insertReceipt(tx, rcpt); err != nil {
		return err
	}
	return tx.Commit()
}

// SavePosition journals a position upsert together with the operation receipt.
func (s *PostgresStore) SavePosition(pos types.Position, rcpt types.Receipt) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if err = upsertPosition(tx, pos); err != nil {
		return err
	}
	if err = insertReceipt(tx, rcpt); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePosition journals a position deallocation together with the receipt.
func (s *PostgresStore) DeletePosition(owner string, rcpt types.Receipt) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if err = deletePosition(tx, owner); err != nil {
		return err
	}
	if err = insertReceipt(tx, rcpt); err != nil {
		return err
	}
	return tx.Commit()
}
