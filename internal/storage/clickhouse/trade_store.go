package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/holiman/uint256"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse. It serves
// the analytics read path: metrics windows and history scans over large
// trade volumes. MergeTree does not enforce uniqueness, so duplicate
// detection is an explicit check before insert.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, token_id, trader, side,
	gross_input_amount, fee_amount, net_amount, output_amount, price_after,
	ts, sequence_number
`

// Insert appends a trade. Returns ErrDuplicateKey if
// (token_id, sequence_number) exists.
func (s *TradeStore) Insert(ctx context.Context, trade *domain.Trade) error {
	exists, err := s.exists(ctx, trade.TokenID, trade.SequenceNumber)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}
	return s.insertBatch(ctx, []*domain.Trade{trade})
}

// InsertBulk appends multiple trades. Fails the entire batch on a
// duplicate (token_id, sequence_number).
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		tokenID  string
		sequence uint64
	}
	seen := make(map[key]struct{})
	for _, t := range trades {
		k := key{t.TokenID, t.SequenceNumber}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, t := range trades {
		exists, err := s.exists(ctx, t.TokenID, t.SequenceNumber)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	return s.insertBatch(ctx, trades)
}

func (s *TradeStore) insertBatch(ctx context.Context, trades []*domain.Trade) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trades (
			trade_id, token_id, trader, side,
			gross_input_amount, fee_amount, net_amount, output_amount, price_after,
			ts, sequence_number
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			t.ID, t.TokenID, t.Trader, string(t.Side),
			t.GrossInputAmount.ToBig(), t.FeeAmount.ToBig(), t.NetAmount.ToBig(),
			t.OutputAmount.ToBig(), t.PriceAfter.ToBig(),
			t.Timestamp, t.SequenceNumber,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *TradeStore) exists(ctx context.Context, tokenID string, sequence uint64) (bool, error) {
	query := `SELECT count() FROM trades WHERE token_id = ? AND sequence_number = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, tokenID, sequence).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByTokenID retrieves all trades for a token, ordered by sequence ASC.
func (s *TradeStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = ?
		ORDER BY sequence_number ASC`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query trades by token id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetSince retrieves up to limit trades with sequence number strictly
// greater than sinceSequence, ordered ASC.
func (s *TradeStore) GetSince(ctx context.Context, tokenID string, sinceSequence uint64, limit int) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = ? AND sequence_number > ?
		ORDER BY sequence_number ASC
		LIMIT ?`

	rows, err := s.conn.Query(ctx, query, tokenID, sinceSequence, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query trades since sequence: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades within [start, end] (unix ms,
// inclusive), ordered by sequence number ASC.
func (s *TradeStore) GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = ? AND ts >= ? AND ts <= ?
		ORDER BY sequence_number ASC`

	rows, err := s.conn.Query(ctx, query, tokenID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans all rows into Trade records.
func scanTrades(rows driver.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		var (
			trade   domain.Trade
			sideStr string
			amounts [5]*big.Int
		)
		err := rows.Scan(
			&trade.ID, &trade.TokenID, &trade.Trader, &sideStr,
			&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
			&trade.Timestamp, &trade.SequenceNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}

		trade.Side = domain.Side(sideStr)
		fields := []**uint256.Int{
			&trade.GrossInputAmount, &trade.FeeAmount, &trade.NetAmount,
			&trade.OutputAmount, &trade.PriceAfter,
		}
		for i, target := range fields {
			v, overflow := uint256.FromBig(amounts[i])
			if overflow {
				return nil, fmt.Errorf("trade %s: amount column %d overflows uint256", trade.ID, i)
			}
			*target = v
		}
		trades = append(trades, &trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}
