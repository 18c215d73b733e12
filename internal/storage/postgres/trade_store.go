package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, token_id, trader, side,
	gross_input_amount::text, fee_amount::text, net_amount::text,
	output_amount::text, price_after::text,
	ts, sequence_number
`

// Insert appends a trade. Returns ErrDuplicateKey if
// (token_id, sequence_number) exists.
func (s *TradeStore) Insert(ctx context.Context, trade *domain.Trade) error {
	query := `
		INSERT INTO trades (
			trade_id, token_id, trader, side,
			gross_input_amount, fee_amount, net_amount,
			output_amount, price_after,
			ts, sequence_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		trade.ID,
		trade.TokenID,
		trade.Trader,
		string(trade.Side),
		numericParam(trade.GrossInputAmount),
		numericParam(trade.FeeAmount),
		numericParam(trade.NetAmount),
		numericParam(trade.OutputAmount),
		numericParam(trade.PriceAfter),
		trade.Timestamp,
		int64(trade.SequenceNumber),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByTokenID retrieves all trades for a token, ordered by sequence ASC.
func (s *TradeStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = $1
		ORDER BY sequence_number ASC`

	rows, err := s.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get trades by token id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetSince retrieves up to limit trades with sequence number strictly
// greater than sinceSequence, ordered ASC.
func (s *TradeStore) GetSince(ctx context.Context, tokenID string, sinceSequence uint64, limit int) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = $1 AND sequence_number > $2
		ORDER BY sequence_number ASC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, tokenID, int64(sinceSequence), limit)
	if err != nil {
		return nil, fmt.Errorf("get trades since sequence: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades within [start, end] (unix ms,
// inclusive), ordered by sequence number ASC.
func (s *TradeStore) GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY sequence_number ASC`

	rows, err := s.pool.Query(ctx, query, tokenID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans all rows into Trade records.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		trade    domain.Trade
		sideStr  string
		seq      int64
		numerics [5]string
	)

	err := row.Scan(
		&trade.ID,
		&trade.TokenID,
		&trade.Trader,
		&sideStr,
		&numerics[0], &numerics[1], &numerics[2],
		&numerics[3], &numerics[4],
		&trade.Timestamp,
		&seq,
	)
	if err != nil {
		return nil, err
	}

	if trade.GrossInputAmount, err = parseNumeric(numerics[0]); err != nil {
		return nil, err
	}
	if trade.FeeAmount, err = parseNumeric(numerics[1]); err != nil {
		return nil, err
	}
	if trade.NetAmount, err = parseNumeric(numerics[2]); err != nil {
		return nil, err
	}
	if trade.OutputAmount, err = parseNumeric(numerics[3]); err != nil {
		return nil, err
	}
	if trade.PriceAfter, err = parseNumeric(numerics[4]); err != nil {
		return nil, err
	}

	trade.Side = domain.Side(sideStr)
	trade.SequenceNumber = uint64(seq)
	return &trade, nil
}
