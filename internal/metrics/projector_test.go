package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/ledger"
	"token-launch-lab/internal/pricing"
	"token-launch-lab/internal/storage/memory"
)

const projToken = "tok-metrics"

func eth(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

func newProjectorFixture(t *testing.T, now time.Time) (*Projector, *memory.TradeStore, *ledger.Ledger) {
	t.Helper()

	ledg := ledger.New(memory.NewTokenStateStore())
	trades := memory.NewTradeStore()

	_, err := ledg.Create(context.Background(), ledger.CreateParams{
		ID:                    projToken,
		Creator:               "creator",
		Symbol:                "METR",
		BootstrapVirtualEth:   eth(1),
		BootstrapVirtualToken: new(uint256.Int).Mul(uint256.NewInt(1e6), uint256.NewInt(1e18)),
		TotalSupply:           new(uint256.Int).Mul(uint256.NewInt(1e9), uint256.NewInt(1e18)),
		BondingSupplyBps:      8000,
		CreatedAt:             now.Add(-72 * time.Hour).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	proj := New(ledg, trades, pricing.DefaultConfig())
	proj.now = func() time.Time { return now }
	return proj, trades, ledg
}

func insertTrade(t *testing.T, trades *memory.TradeStore, seq uint64, side domain.Side, gross, net, priceAfter *uint256.Int, ts time.Time) {
	t.Helper()
	err := trades.Insert(context.Background(), &domain.Trade{
		ID:               string(side) + "-trade",
		TokenID:          projToken,
		Trader:           "trader",
		Side:             side,
		GrossInputAmount: gross,
		FeeAmount:        uint256.NewInt(0),
		NetAmount:        net,
		OutputAmount:     uint256.NewInt(1),
		PriceAfter:       priceAfter,
		Timestamp:        ts.UnixMilli(),
		SequenceNumber:   seq,
	})
	if err != nil {
		t.Fatalf("Insert trade %d failed: %v", seq, err)
	}
}

func TestSnapshotEmptyWindow(t *testing.T) {
	now := time.UnixMilli(1700000000000).Add(48 * time.Hour)
	proj, _, _ := newProjectorFixture(t, now)

	snap, err := proj.Snapshot(context.Background(), projToken)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.TradeCount24h != 0 {
		t.Errorf("TradeCount24h = %d, want 0", snap.TradeCount24h)
	}
	if !snap.Volume24h.IsZero() {
		t.Errorf("Volume24h = %s, want 0", snap.Volume24h)
	}
	if !snap.Change24h.IsZero() {
		t.Errorf("Change24h = %s, want 0", snap.Change24h)
	}
	// Fresh token: marginal price 1e18/1e24 ETH per token unit.
	if !snap.Price.Equal(decimal.New(1, -6)) {
		t.Errorf("Price = %s, want 0.000001", snap.Price)
	}
	if !snap.MarketCap.IsZero() {
		t.Errorf("MarketCap = %s, want 0", snap.MarketCap)
	}
	if snap.BondingProgress != 0 {
		t.Errorf("BondingProgress = %d, want 0", snap.BondingProgress)
	}
}

func TestSnapshotWindowAggregates(t *testing.T) {
	now := time.UnixMilli(1700000000000).Add(48 * time.Hour)
	proj, trades, ledg := newProjectorFixture(t, now)

	// Put some circulation on the curve so price and cap move.
	state, err := ledg.Get(context.Background(), projToken)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_, err = ledg.ApplyTrade(context.Background(), projToken, state.Version, ledger.TradeDelta{
		Side:        domain.SideBuy,
		EthAmount:   eth(1),
		TokenAmount: new(uint256.Int).Mul(uint256.NewInt(500_000), uint256.NewInt(1e18)),
		PlatformFee: uint256.NewInt(0),
		CreatorFee:  uint256.NewInt(0),
		Volume:      eth(1),
	})
	if err != nil {
		t.Fatalf("ApplyTrade failed: %v", err)
	}

	openPrice := uint256.NewInt(2e12) // 0.000002 ETH per token
	insertTrade(t, trades, 1, domain.SideBuy, eth(3), eth(3), uint256.NewInt(1e12), now.Add(-30*time.Hour)) // outside window
	insertTrade(t, trades, 2, domain.SideBuy, eth(1), eth(1), openPrice, now.Add(-2*time.Hour))
	insertTrade(t, trades, 3, domain.SideSell, eth(2), eth(2), uint256.NewInt(3e12), now.Add(-1*time.Hour))

	snap, err := proj.Snapshot(context.Background(), projToken)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.TradeCount24h != 2 {
		t.Errorf("TradeCount24h = %d, want 2", snap.TradeCount24h)
	}
	if !snap.Volume24h.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Volume24h = %s, want 3", snap.Volume24h)
	}

	// Change is measured from the first in-window trade's price.
	cur, err := pricing.CurrentPrice(mustState(t, ledg))
	if err != nil {
		t.Fatalf("CurrentPrice failed: %v", err)
	}
	wantChange := weiToEth(cur).Sub(weiToEth(openPrice)).Div(weiToEth(openPrice)).Mul(decimal.NewFromInt(100))
	if !snap.Change24h.Equal(wantChange) {
		t.Errorf("Change24h = %s, want %s", snap.Change24h, wantChange)
	}
	if !snap.Price.Equal(weiToEth(cur)) {
		t.Errorf("Price = %s, want %s", snap.Price, weiToEth(cur))
	}
}

func mustState(t *testing.T, ledg *ledger.Ledger) *domain.TokenState {
	t.Helper()
	state, err := ledg.Get(context.Background(), projToken)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return state
}

func TestWeiToEth(t *testing.T) {
	if got := weiToEth(eth(7)); !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("weiToEth(7e18) = %s, want 7", got)
	}
	if got := weiToEth(uint256.NewInt(1)); !got.Equal(decimal.New(1, -18)) {
		t.Errorf("weiToEth(1) = %s, want 1e-18", got)
	}
}
