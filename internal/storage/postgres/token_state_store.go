package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

// TokenStateStore implements storage.TokenStateStore using PostgreSQL.
// The CAS contract is enforced by the version predicate of the UPDATE:
// a concurrent writer that committed first leaves zero rows to update.
type TokenStateStore struct {
	pool *Pool
}

// NewTokenStateStore creates a new TokenStateStore.
func NewTokenStateStore(pool *Pool) *TokenStateStore {
	return &TokenStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStateStore = (*TokenStateStore)(nil)

const tokenStateColumns = `
	token_id, creator, symbol,
	virtual_eth_reserve::text, virtual_token_reserve::text, k::text,
	real_eth_reserve::text, tokens_sold::text,
	total_supply::text, bonding_supply::text, dex_reserve::text,
	platform_fees_accrued::text, creator_fees_accrued::text,
	trade_count, total_volume::text,
	status, created_at, graduated_at, version
`

// Insert adds a new token state. Returns ErrDuplicateKey if token_id exists.
func (s *TokenStateStore) Insert(ctx context.Context, state *domain.TokenState) error {
	query := `
		INSERT INTO token_states (
			token_id, creator, symbol,
			virtual_eth_reserve, virtual_token_reserve, k,
			real_eth_reserve, tokens_sold,
			total_supply, bonding_supply, dex_reserve,
			platform_fees_accrued, creator_fees_accrued,
			trade_count, total_volume,
			status, created_at, graduated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := s.pool.Exec(ctx, query,
		state.ID,
		state.Creator,
		state.Symbol,
		numericParam(state.VirtualEthReserve),
		numericParam(state.VirtualTokenReserve),
		numericParam(state.K),
		numericParam(state.RealEthReserve),
		numericParam(state.TokensSold),
		numericParam(state.TotalSupply),
		numericParam(state.BondingSupply),
		numericParam(state.DexReserve),
		numericParam(state.PlatformFeesAccrued),
		numericParam(state.CreatorFeesAccrued),
		int64(state.TradeCount),
		numericParam(state.TotalVolume),
		string(state.Status),
		state.CreatedAt,
		state.GraduatedAt,
		int64(state.Version),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token state: %w", err)
	}
	return nil
}

// GetByID retrieves a token's state. Returns ErrNotFound if absent.
func (s *TokenStateStore) GetByID(ctx context.Context, tokenID string) (*domain.TokenState, error) {
	query := `SELECT ` + tokenStateColumns + ` FROM token_states WHERE token_id = $1`

	row := s.pool.QueryRow(ctx, query, tokenID)
	state, err := scanTokenState(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token state by id: %w", err)
	}
	return state, nil
}

// UpdateCAS replaces the stored state if and only if the stored version
// equals expectedVersion. Returns ErrVersionConflict otherwise,
// ErrNotFound if the token does not exist.
func (s *TokenStateStore) UpdateCAS(ctx context.Context, state *domain.TokenState, expectedVersion uint64) error {
	query := `
		UPDATE token_states SET
			real_eth_reserve = $3,
			tokens_sold = $4,
			platform_fees_accrued = $5,
			creator_fees_accrued = $6,
			trade_count = $7,
			total_volume = $8,
			status = $9,
			graduated_at = $10,
			version = $11
		WHERE token_id = $1 AND version = $2
	`

	tag, err := s.pool.Exec(ctx, query,
		state.ID,
		int64(expectedVersion),
		numericParam(state.RealEthReserve),
		numericParam(state.TokensSold),
		numericParam(state.PlatformFeesAccrued),
		numericParam(state.CreatorFeesAccrued),
		int64(state.TradeCount),
		numericParam(state.TotalVolume),
		string(state.Status),
		state.GraduatedAt,
		int64(state.Version),
	)
	if err != nil {
		return fmt.Errorf("update token state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the token is unknown or a concurrent writer moved the
		// version first; distinguish for the caller.
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM token_states WHERE token_id = $1)`, state.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check token exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}
	return nil
}

// List returns all token states ordered by creation time ASC.
func (s *TokenStateStore) List(ctx context.Context) ([]*domain.TokenState, error) {
	query := `SELECT ` + tokenStateColumns + ` FROM token_states ORDER BY created_at ASC, token_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list token states: %w", err)
	}
	defer rows.Close()

	var states []*domain.TokenState
	for rows.Next() {
		state, err := scanTokenState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token states: %w", err)
	}
	return states, nil
}

// scanTokenState scans a single row into a TokenState.
func scanTokenState(row pgx.Row) (*domain.TokenState, error) {
	var (
		state      domain.TokenState
		statusStr  string
		tradeCount int64
		version    int64
		numerics   [11]string
	)

	err := row.Scan(
		&state.ID,
		&state.Creator,
		&state.Symbol,
		&numerics[0], &numerics[1], &numerics[2],
		&numerics[3], &numerics[4],
		&numerics[5], &numerics[6], &numerics[7],
		&numerics[8], &numerics[9],
		&tradeCount, &numerics[10],
		&statusStr,
		&state.CreatedAt,
		&state.GraduatedAt,
		&version,
	)
	if err != nil {
		return nil, err
	}

	if state.VirtualEthReserve, err = parseNumeric(numerics[0]); err != nil {
		return nil, err
	}
	if state.VirtualTokenReserve, err = parseNumeric(numerics[1]); err != nil {
		return nil, err
	}
	if state.K, err = parseNumeric(numerics[2]); err != nil {
		return nil, err
	}
	if state.RealEthReserve, err = parseNumeric(numerics[3]); err != nil {
		return nil, err
	}
	if state.TokensSold, err = parseNumeric(numerics[4]); err != nil {
		return nil, err
	}
	if state.TotalSupply, err = parseNumeric(numerics[5]); err != nil {
		return nil, err
	}
	if state.BondingSupply, err = parseNumeric(numerics[6]); err != nil {
		return nil, err
	}
	if state.DexReserve, err = parseNumeric(numerics[7]); err != nil {
		return nil, err
	}
	if state.PlatformFeesAccrued, err = parseNumeric(numerics[8]); err != nil {
		return nil, err
	}
	if state.CreatorFeesAccrued, err = parseNumeric(numerics[9]); err != nil {
		return nil, err
	}
	if state.TotalVolume, err = parseNumeric(numerics[10]); err != nil {
		return nil, err
	}

	state.TradeCount = uint64(tradeCount)
	state.Version = uint64(version)
	state.Status = domain.TokenStatus(statusStr)
	return &state, nil
}
