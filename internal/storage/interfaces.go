package storage

import (
	"context"

	"token-launch-lab/internal/domain"
)

// TokenStateStore persists per-token economic state. Mutations go through
// a compare-and-swap keyed on TokenState.Version so that concurrent
// writers on the same token are linearized: the store applies an update
// only when expectedVersion matches the stored version, and the written
// state must carry expectedVersion+1.
type TokenStateStore interface {
	// Insert adds a newly created token. Returns ErrDuplicateKey if the
	// token id exists.
	Insert(ctx context.Context, state *domain.TokenState) error

	// GetByID retrieves a token's state. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, tokenID string) (*domain.TokenState, error)

	// UpdateCAS replaces the stored state if and only if the stored
	// version equals expectedVersion. Returns ErrVersionConflict
	// otherwise, ErrNotFound if the token does not exist. On conflict
	// the stored state is left untouched.
	UpdateCAS(ctx context.Context, state *domain.TokenState, expectedVersion uint64) error

	// List returns all token states, ordered by creation time ASC.
	List(ctx context.Context) ([]*domain.TokenState, error)
}

// TradeStore persists the append-only trade history.
type TradeStore interface {
	// Insert appends a trade. Returns ErrDuplicateKey if
	// (token_id, sequence_number) exists.
	Insert(ctx context.Context, trade *domain.Trade) error

	// GetByTokenID retrieves all trades for a token, ordered by
	// sequence number ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.Trade, error)

	// GetSince retrieves up to limit trades with sequence number
	// strictly greater than sinceSequence, ordered ASC. Restartable
	// pagination for history consumers.
	GetSince(ctx context.Context, tokenID string, sinceSequence uint64, limit int) ([]*domain.Trade, error)

	// GetByTimeRange retrieves trades for a token within [start, end]
	// (unix ms, inclusive), ordered by sequence number ASC.
	GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.Trade, error)
}

// GraduationRecordStore persists the one-per-token graduation records.
type GraduationRecordStore interface {
	// Insert adds a record. Returns ErrDuplicateKey if the token
	// already graduated.
	Insert(ctx context.Context, record *domain.GraduationRecord) error

	// GetByTokenID retrieves the record. Returns ErrNotFound if the
	// token has not graduated.
	GetByTokenID(ctx context.Context, tokenID string) (*domain.GraduationRecord, error)
}
