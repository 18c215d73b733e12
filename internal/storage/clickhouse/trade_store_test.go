package clickhouse

import (
	"context"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

func chTrade(tokenID string, seq uint64) *domain.Trade {
	big := new(uint256.Int).Mul(uint256.NewInt(89_000_000), uint256.NewInt(1e18))
	return &domain.Trade{
		ID:               fmt.Sprintf("%s-trade-%d", tokenID, seq),
		TokenID:          tokenID,
		Trader:           "TraderAddress123",
		Side:             domain.SideBuy,
		GrossInputAmount: uint256.NewInt(100000),
		FeeAmount:        uint256.NewInt(2000),
		NetAmount:        uint256.NewInt(98000),
		OutputAmount:     big,
		PriceAfter:       uint256.NewInt(1100),
		Timestamp:        1700000000000 + int64(seq)*1000,
		SequenceNumber:   seq,
	}
}

func TestTradeStore_InsertAndGetByTokenID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()

	trade := chTrade("tok-ch-001", 1)
	require.NoError(t, store.Insert(ctx, trade))

	trades, err := store.GetByTokenID(ctx, "tok-ch-001")
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.Equal(t, trade.ID, got.ID)
	assert.Equal(t, domain.SideBuy, got.Side)
	assert.True(t, got.GrossInputAmount.Eq(trade.GrossInputAmount))
	assert.True(t, got.OutputAmount.Eq(trade.OutputAmount), "large uint256 must round-trip")
	assert.Equal(t, trade.Timestamp, got.Timestamp)
	assert.Equal(t, uint64(1), got.SequenceNumber)
}

func TestTradeStore_InsertDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, chTrade("tok-ch-dup", 1)))
	assert.ErrorIs(t, store.Insert(ctx, chTrade("tok-ch-dup", 1)), storage.ErrDuplicateKey)
}

func TestTradeStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()

	batch := []*domain.Trade{
		chTrade("tok-ch-bulk", 1),
		chTrade("tok-ch-bulk", 2),
		chTrade("tok-ch-bulk", 3),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	trades, err := store.GetByTokenID(ctx, "tok-ch-bulk")
	require.NoError(t, err)
	assert.Len(t, trades, 3)

	// A batch with an intra-batch duplicate is rejected whole.
	dup := []*domain.Trade{chTrade("tok-ch-bulk2", 1), chTrade("tok-ch-bulk2", 1)}
	assert.ErrorIs(t, store.InsertBulk(ctx, dup), storage.ErrDuplicateKey)
}

func TestTradeStore_GetSince(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()

	var batch []*domain.Trade
	for seq := uint64(1); seq <= 5; seq++ {
		batch = append(batch, chTrade("tok-ch-since", seq))
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	page, err := store.GetSince(ctx, "tok-ch-since", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].SequenceNumber)
	assert.Equal(t, uint64(4), page[1].SequenceNumber)
}

func TestTradeStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()

	var batch []*domain.Trade
	for seq := uint64(1); seq <= 3; seq++ {
		batch = append(batch, chTrade("tok-ch-range", seq))
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	trades, err := store.GetByTimeRange(ctx, "tok-ch-range", 1700000001000, 1700000002000)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].SequenceNumber)
	assert.Equal(t, uint64(2), trades[1].SequenceNumber)
}
