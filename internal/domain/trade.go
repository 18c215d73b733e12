package domain

import "github.com/holiman/uint256"

// Side is the direction of a curve trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is the append-only record of one executed curve trade.
// Immutable once written; SequenceNumber is monotonic per token.
type Trade struct {
	ID      string
	TokenID string
	Trader  string // base58 address
	Side    Side

	GrossInputAmount *uint256.Int // ETH for buys, tokens for sells
	FeeAmount        *uint256.Int // total fee, always in ETH
	NetAmount        *uint256.Int // input after fee (buy) / gross output (sell)
	OutputAmount     *uint256.Int // tokens for buys, ETH for sells
	PriceAfter       *uint256.Int // marginal price after the trade, 1e18 fixed point

	Timestamp      int64 // unix ms
	SequenceNumber uint64
}
