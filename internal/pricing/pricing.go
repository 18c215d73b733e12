// Package pricing computes buy/sell quotes and derived curve values from
// an immutable token-state snapshot. Everything here is pure: no store
// access, no mutation, so the authoritative executor and any preview API
// share the exact same math and cannot drift.
package pricing

import (
	"errors"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/curvemath"
	"token-launch-lab/internal/domain"
)

var (
	// ErrInvalidAmount is returned for a zero or nil trade amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientOutput is returned when a trade would produce no
	// output, or more tokens than the curve still holds.
	ErrInsufficientOutput = errors.New("insufficient output")

	// ErrInsufficientLiquidity is returned when a sell would pay out
	// more ETH than trades have actually deposited.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// BpsDenominator is the basis-point scale for fee rates.
const BpsDenominator = 10_000

// CurveConfig carries the economic parameters shared by every token.
type CurveConfig struct {
	// TotalFeeBps is the fee charged on every trade, in basis points.
	TotalFeeBps uint64
	// PlatformFeeBps and CreatorFeeBps split TotalFeeBps.
	PlatformFeeBps uint64
	CreatorFeeBps  uint64
	// GraduationThreshold is the market cap (1e18 fixed point ETH) at
	// which a token leaves the curve.
	GraduationThreshold *uint256.Int
}

// DefaultConfig mirrors the launch parameters of the reference platform:
// 2% total fee split 1%/1%, graduation at 69 ETH market cap.
func DefaultConfig() CurveConfig {
	threshold := new(uint256.Int).Mul(uint256.NewInt(69), uint256.NewInt(1e18))
	return CurveConfig{
		TotalFeeBps:         200,
		PlatformFeeBps:      100,
		CreatorFeeBps:       100,
		GraduationThreshold: threshold,
	}
}

// Quote is the result of pricing a prospective trade.
type Quote struct {
	// AmountOut is tokens for a buy, ETH for a sell.
	AmountOut *uint256.Int
	// FeeAmount is the total fee, always denominated in ETH.
	FeeAmount *uint256.Int
	// NetAmount is the ETH that enters the swap math on a buy, or the
	// gross ETH leaving the curve before the fee on a sell.
	NetAmount *uint256.Int
}

// QuoteBuy prices spending ethIn against the curve. The fee is removed
// from the input before the swap math runs, so it never enters the
// invariant. newT is rounded up, which rounds tokensOut down: rounding
// always favors the protocol.
func QuoteBuy(state *domain.TokenState, ethIn *uint256.Int, cfg CurveConfig) (*Quote, error) {
	if ethIn == nil || ethIn.IsZero() {
		return nil, ErrInvalidAmount
	}

	fee, err := curvemath.MulDiv(ethIn, uint256.NewInt(cfg.TotalFeeBps), uint256.NewInt(BpsDenominator), curvemath.RoundDown)
	if err != nil {
		return nil, err
	}
	ethNet, err := curvemath.Sub(ethIn, fee)
	if err != nil {
		return nil, err
	}
	if ethNet.IsZero() {
		return nil, ErrInvalidAmount
	}

	e := state.EthReserve()
	t := state.TokenReserve()

	newE, err := curvemath.Add(e, ethNet)
	if err != nil {
		return nil, err
	}
	newT, err := curvemath.Div(state.K, newE, curvemath.RoundUp)
	if err != nil {
		return nil, err
	}
	if newT.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	tokensOut, err := curvemath.Sub(t, newT)
	if err != nil || tokensOut.IsZero() {
		return nil, ErrInsufficientOutput
	}
	if tokensOut.Gt(state.BondingInventory()) {
		return nil, ErrInsufficientOutput
	}

	return &Quote{AmountOut: tokensOut, FeeAmount: fee, NetAmount: ethNet}, nil
}

// QuoteSell prices returning tokensIn to the curve. The fee is deducted
// from the computed ETH output, not the input, mirroring the buy-side
// convention of charging the fee in ETH terms. Preserved asymmetry of
// the settlement layer this mirrors.
func QuoteSell(state *domain.TokenState, tokensIn *uint256.Int, cfg CurveConfig) (*Quote, error) {
	if tokensIn == nil || tokensIn.IsZero() {
		return nil, ErrInvalidAmount
	}

	e := state.EthReserve()
	t := state.TokenReserve()

	newT, err := curvemath.Add(t, tokensIn)
	if err != nil {
		return nil, err
	}
	// Rounding newE up rounds the payout down, in the protocol's favor.
	newE, err := curvemath.Div(state.K, newT, curvemath.RoundUp)
	if err != nil {
		return nil, err
	}

	ethGross, err := curvemath.Sub(e, newE)
	if err != nil || ethGross.IsZero() {
		return nil, ErrInsufficientOutput
	}
	// The curve can only pay out ETH that trades deposited; virtual
	// reserves are never withdrawable.
	if ethGross.Gt(state.RealEthReserve) {
		return nil, ErrInsufficientLiquidity
	}

	fee, err := curvemath.MulDiv(ethGross, uint256.NewInt(cfg.TotalFeeBps), uint256.NewInt(BpsDenominator), curvemath.RoundDown)
	if err != nil {
		return nil, err
	}
	ethOut, err := curvemath.Sub(ethGross, fee)
	if err != nil {
		return nil, err
	}
	if ethOut.IsZero() {
		return nil, ErrInsufficientOutput
	}

	return &Quote{AmountOut: ethOut, FeeAmount: fee, NetAmount: ethGross}, nil
}

// CurrentPrice returns the marginal price E/T in 1e18 fixed point.
func CurrentPrice(state *domain.TokenState) (*uint256.Int, error) {
	return curvemath.MulDiv(state.EthReserve(), curvemath.PriceScale, state.TokenReserve(), curvemath.RoundDown)
}

// MarketCap returns CurrentPrice * circulating supply, where circulating
// supply is the tokens sold out of the bonding supply.
func MarketCap(state *domain.TokenState) (*uint256.Int, error) {
	price, err := CurrentPrice(state)
	if err != nil {
		return nil, err
	}
	return curvemath.MulDiv(price, state.TokensSold, curvemath.PriceScale, curvemath.RoundDown)
}

// BondingProgress returns how far the token is toward graduation as a
// whole percentage clamped to [0, 100].
func BondingProgress(state *domain.TokenState, cfg CurveConfig) (uint64, error) {
	cap, err := MarketCap(state)
	if err != nil {
		return 0, err
	}
	pct, err := curvemath.MulDiv(cap, uint256.NewInt(100), cfg.GraduationThreshold, curvemath.RoundDown)
	if err != nil {
		return 0, err
	}
	if pct.GtUint64(100) {
		return 100, nil
	}
	return pct.Uint64(), nil
}
