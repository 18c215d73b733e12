// Package metrics projects human-facing display metrics from the trade
// history and current token state. It is strictly read-only: the
// projector never writes, so it can run against a replica or lag the
// trade feed without affecting execution.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/ledger"
	"token-launch-lab/internal/pricing"
	"token-launch-lab/internal/storage"
)

// window is the lookback for the rolling display metrics.
const window = 24 * time.Hour

// Snapshot is the display view of one token at a point in time.
// Monetary values are in ETH, converted from wei for presentation.
type Snapshot struct {
	TokenID string
	Status  domain.TokenStatus

	Price     decimal.Decimal // ETH per token
	MarketCap decimal.Decimal // ETH

	// Change24h is the percent change of the marginal price against the
	// first trade of the window. Zero when the window has no trades.
	Change24h     decimal.Decimal
	Volume24h     decimal.Decimal // gross ETH notional
	TradeCount24h int

	BondingProgress uint64 // whole percent toward graduation
	AsOf            int64  // unix ms
}

// Projector computes snapshots. Safe for concurrent use.
type Projector struct {
	ledger *ledger.Ledger
	trades storage.TradeStore
	cfg    pricing.CurveConfig
	now    func() time.Time
}

// New creates a projector over the ledger and trade history.
func New(ledg *ledger.Ledger, trades storage.TradeStore, cfg pricing.CurveConfig) *Projector {
	return &Projector{ledger: ledg, trades: trades, cfg: cfg, now: time.Now}
}

// Snapshot computes the display metrics for one token.
func (p *Projector) Snapshot(ctx context.Context, tokenID string) (*Snapshot, error) {
	state, err := p.ledger.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	price, err := pricing.CurrentPrice(state)
	if err != nil {
		return nil, fmt.Errorf("price of token %s: %w", tokenID, err)
	}
	marketCap, err := pricing.MarketCap(state)
	if err != nil {
		return nil, fmt.Errorf("market cap of token %s: %w", tokenID, err)
	}
	progress, err := pricing.BondingProgress(state, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("bonding progress of token %s: %w", tokenID, err)
	}

	asOf := p.now()
	since := asOf.Add(-window)
	recent, err := p.trades.GetByTimeRange(ctx, tokenID, since.UnixMilli(), asOf.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("trade window of token %s: %w", tokenID, err)
	}

	snap := &Snapshot{
		TokenID:         tokenID,
		Status:          state.Status,
		Price:           weiToEth(price),
		MarketCap:       weiToEth(marketCap),
		Volume24h:       windowVolume(recent),
		TradeCount24h:   len(recent),
		BondingProgress: progress,
		AsOf:            asOf.UnixMilli(),
	}
	snap.Change24h = priceChange(recent, price)
	return snap, nil
}

// windowVolume sums the gross ETH notional of the window's trades:
// ETH in for buys, ETH out of the curve for sells.
func windowVolume(trades []*domain.Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		switch t.Side {
		case domain.SideBuy:
			total = total.Add(weiToEth(t.GrossInputAmount))
		case domain.SideSell:
			total = total.Add(weiToEth(t.NetAmount))
		}
	}
	return total
}

// priceChange compares the current marginal price to the price after
// the window's first trade.
func priceChange(trades []*domain.Trade, current *uint256.Int) decimal.Decimal {
	if len(trades) == 0 {
		return decimal.Zero
	}
	open := weiToEth(trades[0].PriceAfter)
	if open.IsZero() {
		return decimal.Zero
	}
	cur := weiToEth(current)
	return cur.Sub(open).Div(open).Mul(decimal.NewFromInt(100))
}

// weiToEth converts a 1e18 fixed-point amount to a decimal ETH value.
func weiToEth(v *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), -18)
}
