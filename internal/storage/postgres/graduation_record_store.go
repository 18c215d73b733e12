package postgres

import (
	"context"
	"fmt"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

// GraduationRecordStore implements storage.GraduationRecordStore using
// PostgreSQL.
type GraduationRecordStore struct {
	pool *Pool
}

// NewGraduationRecordStore creates a new GraduationRecordStore.
func NewGraduationRecordStore(pool *Pool) *GraduationRecordStore {
	return &GraduationRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GraduationRecordStore = (*GraduationRecordStore)(nil)

// Insert adds a record. Returns ErrDuplicateKey if the token already
// graduated.
func (s *GraduationRecordStore) Insert(ctx context.Context, record *domain.GraduationRecord) error {
	query := `
		INSERT INTO graduation_records (
			token_id, external_pool_reference, eth_migrated, tokens_migrated,
			liquidity_receipt_burned, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		record.TokenID,
		record.ExternalPoolReference,
		numericParam(record.EthMigrated),
		numericParam(record.TokensMigrated),
		record.LiquidityReceiptBurned,
		record.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert graduation record: %w", err)
	}
	return nil
}

// GetByTokenID retrieves the record. Returns ErrNotFound if the token
// has not graduated.
func (s *GraduationRecordStore) GetByTokenID(ctx context.Context, tokenID string) (*domain.GraduationRecord, error) {
	query := `
		SELECT token_id, external_pool_reference, eth_migrated::text, tokens_migrated::text,
			liquidity_receipt_burned, completed_at
		FROM graduation_records
		WHERE token_id = $1
	`

	var (
		record   domain.GraduationRecord
		numerics [2]string
	)
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&record.TokenID,
		&record.ExternalPoolReference,
		&numerics[0],
		&numerics[1],
		&record.LiquidityReceiptBurned,
		&record.CompletedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get graduation record: %w", err)
	}

	if record.EthMigrated, err = parseNumeric(numerics[0]); err != nil {
		return nil, err
	}
	if record.TokensMigrated, err = parseNumeric(numerics[1]); err != nil {
		return nil, err
	}
	return &record, nil
}
