package domain

import (
	"github.com/holiman/uint256"
)

// TokenStatus is the lifecycle state of a launched token.
// Active -> Graduating -> Graduated, one-way.
type TokenStatus string

const (
	// StatusActive means the token trades on the bonding curve.
	StatusActive TokenStatus = "ACTIVE"

	// StatusGraduating is a short-lived transitional state held while
	// liquidity migration to the external venue is in flight. No curve
	// trade may execute against a graduating token.
	StatusGraduating TokenStatus = "GRADUATING"

	// StatusGraduated is terminal: the curve is sealed and all trading
	// happens on the external venue.
	StatusGraduated TokenStatus = "GRADUATED"
)

// TokenState is the full economic state of one launched token.
// It is owned exclusively by the reserve ledger; every other component
// works on copies and must never mutate a state it was handed.
//
// Reserve accounting: the virtual reserves are bootstrap liquidity fixed
// at creation and K = VirtualEthReserve * VirtualTokenReserve never
// changes during the bonding-curve phase. RealEthReserve is the ETH
// actually deposited by trades (fees excluded). TokensSold is the
// circulating supply held by traders. The effective curve reserves are
//
//	E = VirtualEthReserve + RealEthReserve
//	T = VirtualTokenReserve - TokensSold
//
// which keeps every stored quantity unsigned while E*T stays pinned to K.
type TokenState struct {
	ID      string // base58 token id
	Creator string // base58 address of the minting account
	Symbol  string // opaque display metadata

	VirtualEthReserve   *uint256.Int // fixed at creation
	VirtualTokenReserve *uint256.Int // fixed at creation
	K                   *uint256.Int // VirtualEthReserve * VirtualTokenReserve

	RealEthReserve *uint256.Int // ETH deposited by trades, net of fees
	TokensSold     *uint256.Int // circulating supply bought off the curve

	TotalSupply   *uint256.Int // BondingSupply + DexReserve, fixed
	BondingSupply *uint256.Int // sellable via the curve
	DexReserve    *uint256.Int // held back to seed the graduation pool

	PlatformFeesAccrued *uint256.Int // cumulative, withdrawable externally
	CreatorFeesAccrued  *uint256.Int // cumulative, withdrawable externally

	TradeCount  uint64
	TotalVolume *uint256.Int // cumulative gross ETH across buys and sells

	Status      TokenStatus
	CreatedAt   int64  // unix ms
	GraduatedAt *int64 // unix ms, nil until graduated

	// Version is the optimistic-concurrency token: bumped by exactly one
	// on every successful mutation, checked by compare-and-swap updates.
	Version uint64
}

// EthReserve returns the effective ETH-side curve reserve E.
func (s *TokenState) EthReserve() *uint256.Int {
	return new(uint256.Int).Add(s.VirtualEthReserve, s.RealEthReserve)
}

// TokenReserve returns the effective token-side curve reserve T.
func (s *TokenState) TokenReserve() *uint256.Int {
	return new(uint256.Int).Sub(s.VirtualTokenReserve, s.TokensSold)
}

// BondingInventory returns the tokens still sellable via the curve.
func (s *TokenState) BondingInventory() *uint256.Int {
	return new(uint256.Int).Sub(s.BondingSupply, s.TokensSold)
}

// Clone returns a deep copy safe to hand outside the ledger.
func (s *TokenState) Clone() *TokenState {
	c := *s
	c.VirtualEthReserve = new(uint256.Int).Set(s.VirtualEthReserve)
	c.VirtualTokenReserve = new(uint256.Int).Set(s.VirtualTokenReserve)
	c.K = new(uint256.Int).Set(s.K)
	c.RealEthReserve = new(uint256.Int).Set(s.RealEthReserve)
	c.TokensSold = new(uint256.Int).Set(s.TokensSold)
	c.TotalSupply = new(uint256.Int).Set(s.TotalSupply)
	c.BondingSupply = new(uint256.Int).Set(s.BondingSupply)
	c.DexReserve = new(uint256.Int).Set(s.DexReserve)
	c.PlatformFeesAccrued = new(uint256.Int).Set(s.PlatformFeesAccrued)
	c.CreatorFeesAccrued = new(uint256.Int).Set(s.CreatorFeesAccrued)
	c.TotalVolume = new(uint256.Int).Set(s.TotalVolume)
	if s.GraduatedAt != nil {
		at := *s.GraduatedAt
		c.GraduatedAt = &at
	}
	return &c
}
