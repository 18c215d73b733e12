package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"token-launch-lab/internal/domain"
)

// setupTestDB creates a PostgreSQL container for testing and applies
// the embedded migrations. Returns a cleanup function that must be
// called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runTestMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runTestMigrations applies the store schemas. Inlined rather than
// importing the migrations package to avoid an import cycle with its
// postgres dependency.
func runTestMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS token_states (
			token_id TEXT PRIMARY KEY,
			creator TEXT NOT NULL,
			symbol TEXT NOT NULL,
			virtual_eth_reserve NUMERIC(78,0) NOT NULL,
			virtual_token_reserve NUMERIC(78,0) NOT NULL,
			k NUMERIC(78,0) NOT NULL,
			real_eth_reserve NUMERIC(78,0) NOT NULL,
			tokens_sold NUMERIC(78,0) NOT NULL,
			total_supply NUMERIC(78,0) NOT NULL,
			bonding_supply NUMERIC(78,0) NOT NULL,
			dex_reserve NUMERIC(78,0) NOT NULL,
			platform_fees_accrued NUMERIC(78,0) NOT NULL,
			creator_fees_accrued NUMERIC(78,0) NOT NULL,
			trade_count BIGINT NOT NULL DEFAULT 0,
			total_volume NUMERIC(78,0) NOT NULL,
			status TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			graduated_at BIGINT,
			version BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			token_id TEXT NOT NULL,
			trader TEXT NOT NULL,
			side TEXT NOT NULL,
			gross_input_amount NUMERIC(78,0) NOT NULL,
			fee_amount NUMERIC(78,0) NOT NULL,
			net_amount NUMERIC(78,0) NOT NULL,
			output_amount NUMERIC(78,0) NOT NULL,
			price_after NUMERIC(78,0) NOT NULL,
			ts BIGINT NOT NULL,
			sequence_number BIGINT NOT NULL,
			UNIQUE (token_id, sequence_number)
		)`,
		`CREATE TABLE IF NOT EXISTS graduation_records (
			token_id TEXT PRIMARY KEY,
			external_pool_reference TEXT NOT NULL,
			eth_migrated NUMERIC(78,0) NOT NULL,
			tokens_migrated NUMERIC(78,0) NOT NULL,
			liquidity_receipt_burned BOOLEAN NOT NULL,
			completed_at BIGINT NOT NULL
		)`,
	}
	for _, schema := range schemas {
		_, err := pool.Exec(ctx, schema)
		require.NoError(t, err, "failed to apply schema")
	}
}

// testTokenState builds a populated state for store tests.
func testTokenState(tokenID string) *domain.TokenState {
	vEth := new(uint256.Int).Mul(uint256.NewInt(1), uint256.NewInt(1e18))
	vTok := new(uint256.Int).Mul(uint256.NewInt(1e6), uint256.NewInt(1e18))
	return &domain.TokenState{
		ID:                  tokenID,
		Creator:             "CreatorAddress123",
		Symbol:              "TEST",
		VirtualEthReserve:   vEth,
		VirtualTokenReserve: vTok,
		K:                   new(uint256.Int).Mul(vEth, vTok),
		RealEthReserve:      uint256.NewInt(0),
		TokensSold:          uint256.NewInt(0),
		TotalSupply:         new(uint256.Int).Mul(uint256.NewInt(1e9), uint256.NewInt(1e18)),
		BondingSupply:       new(uint256.Int).Mul(uint256.NewInt(800_000_000), uint256.NewInt(1e18)),
		DexReserve:          new(uint256.Int).Mul(uint256.NewInt(200_000_000), uint256.NewInt(1e18)),
		PlatformFeesAccrued: uint256.NewInt(0),
		CreatorFeesAccrued:  uint256.NewInt(0),
		TotalVolume:         uint256.NewInt(0),
		Status:              domain.StatusActive,
		CreatedAt:           1700000000000,
		Version:             1,
	}
}

// testTrade builds a populated trade for store tests.
func testTrade(tokenID string, seq uint64) *domain.Trade {
	return &domain.Trade{
		ID:               tokenID + "-trade-" + string(rune('0'+seq)),
		TokenID:          tokenID,
		Trader:           "TraderAddress123",
		Side:             domain.SideBuy,
		GrossInputAmount: uint256.NewInt(100000),
		FeeAmount:        uint256.NewInt(2000),
		NetAmount:        uint256.NewInt(98000),
		OutputAmount:     uint256.NewInt(89000),
		PriceAfter:       uint256.NewInt(1100),
		Timestamp:        1700000000000 + int64(seq)*1000,
		SequenceNumber:   seq,
	}
}
