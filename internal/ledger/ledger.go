// Package ledger owns per-token reserve state and supply accounting.
// It is the single writer of TokenState: every mutation is a
// compare-and-swap keyed on the state version, so concurrent trades on
// one token linearize without any global lock, and trades on different
// tokens never contend.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/curvemath"
	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

var (
	// ErrInvalidParameters is returned for creation parameters that do
	// not describe a well-formed token.
	ErrInvalidParameters = errors.New("invalid token parameters")

	// ErrInvalidState is returned when a trade targets a token that is
	// no longer tradable on the curve.
	ErrInvalidState = errors.New("token not in tradable state")

	// ErrInvalidTransition is returned for a status transition from the
	// wrong source state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// bpsDenominator is the basis-point scale for the supply split.
const bpsDenominator = 10_000

// Ledger mediates all TokenState mutations through a CAS-guarded store.
type Ledger struct {
	store storage.TokenStateStore
}

// New creates a ledger on top of a token state store.
func New(store storage.TokenStateStore) *Ledger {
	return &Ledger{store: store}
}

// CreateParams describes a token launch.
type CreateParams struct {
	ID      string
	Creator string
	Symbol  string

	BootstrapVirtualEth   *uint256.Int
	BootstrapVirtualToken *uint256.Int
	TotalSupply           *uint256.Int
	BondingSupplyBps      uint64

	CreatedAt int64 // unix ms
}

// Create registers a new token with status Active, zero real reserves
// and K fixed from the bootstrap virtual reserves.
func (l *Ledger) Create(ctx context.Context, p CreateParams) (*domain.TokenState, error) {
	if p.ID == "" || p.Creator == "" {
		return nil, fmt.Errorf("%w: missing id or creator", ErrInvalidParameters)
	}
	if p.BootstrapVirtualEth == nil || p.BootstrapVirtualEth.IsZero() ||
		p.BootstrapVirtualToken == nil || p.BootstrapVirtualToken.IsZero() {
		return nil, fmt.Errorf("%w: bootstrap reserves must be nonzero", ErrInvalidParameters)
	}
	if p.TotalSupply == nil || p.TotalSupply.IsZero() {
		return nil, fmt.Errorf("%w: total supply must be nonzero", ErrInvalidParameters)
	}
	if p.BondingSupplyBps == 0 || p.BondingSupplyBps > bpsDenominator {
		return nil, fmt.Errorf("%w: bonding supply bps %d out of range", ErrInvalidParameters, p.BondingSupplyBps)
	}

	k, err := curvemath.Mul(p.BootstrapVirtualEth, p.BootstrapVirtualToken)
	if err != nil {
		return nil, fmt.Errorf("compute k for token %s: %w", p.ID, err)
	}
	bonding, err := curvemath.MulDiv(p.TotalSupply, uint256.NewInt(p.BondingSupplyBps), uint256.NewInt(bpsDenominator), curvemath.RoundDown)
	if err != nil {
		return nil, fmt.Errorf("compute bonding supply for token %s: %w", p.ID, err)
	}
	if bonding.IsZero() {
		return nil, fmt.Errorf("%w: bonding supply rounds to zero", ErrInvalidParameters)
	}
	dexReserve := new(uint256.Int).Sub(p.TotalSupply, bonding)

	state := &domain.TokenState{
		ID:                  p.ID,
		Creator:             p.Creator,
		Symbol:              p.Symbol,
		VirtualEthReserve:   new(uint256.Int).Set(p.BootstrapVirtualEth),
		VirtualTokenReserve: new(uint256.Int).Set(p.BootstrapVirtualToken),
		K:                   k,
		RealEthReserve:      uint256.NewInt(0),
		TokensSold:          uint256.NewInt(0),
		TotalSupply:         new(uint256.Int).Set(p.TotalSupply),
		BondingSupply:       bonding,
		DexReserve:          dexReserve,
		PlatformFeesAccrued: uint256.NewInt(0),
		CreatorFeesAccrued:  uint256.NewInt(0),
		TotalVolume:         uint256.NewInt(0),
		Status:              domain.StatusActive,
		CreatedAt:           p.CreatedAt,
		Version:             1,
	}

	if err := l.store.Insert(ctx, state); err != nil {
		return nil, fmt.Errorf("insert token %s: %w", p.ID, err)
	}
	return state.Clone(), nil
}

// Get returns a copy of the token's current state.
// Returns storage.ErrNotFound if the token does not exist.
func (l *Ledger) Get(ctx context.Context, tokenID string) (*domain.TokenState, error) {
	return l.store.GetByID(ctx, tokenID)
}

// List returns all token states ordered by creation time.
func (l *Ledger) List(ctx context.Context) ([]*domain.TokenState, error) {
	return l.store.List(ctx)
}

// TradeDelta is the reserve mutation of one executed trade. Amounts are
// absolute values; Side decides the direction they apply in.
type TradeDelta struct {
	Side domain.Side

	// EthAmount is the net ETH entering the curve on a buy, or the
	// gross ETH leaving it on a sell.
	EthAmount *uint256.Int
	// TokenAmount is the tokens leaving the curve on a buy, or
	// returning to it on a sell.
	TokenAmount *uint256.Int

	PlatformFee *uint256.Int
	CreatorFee  *uint256.Int

	// Volume is the gross ETH notional recorded for the trade.
	Volume *uint256.Int
}

// ApplyTrade commits a trade delta against the expected version.
// Returns storage.ErrVersionConflict when another trade got there first;
// the caller must re-quote against fresh state and retry. On any error
// the stored state is left exactly as it was.
func (l *Ledger) ApplyTrade(ctx context.Context, tokenID string, expectedVersion uint64, delta TradeDelta) (*domain.TokenState, error) {
	state, err := l.store.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if state.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: token %s is %s", ErrInvalidState, tokenID, state.Status)
	}
	if state.Version != expectedVersion {
		return nil, storage.ErrVersionConflict
	}

	next := state.Clone()
	switch delta.Side {
	case domain.SideBuy:
		if next.RealEthReserve, err = curvemath.Add(next.RealEthReserve, delta.EthAmount); err != nil {
			return nil, fmt.Errorf("apply buy to token %s: %w", tokenID, err)
		}
		if next.TokensSold, err = curvemath.Add(next.TokensSold, delta.TokenAmount); err != nil {
			return nil, fmt.Errorf("apply buy to token %s: %w", tokenID, err)
		}
		if next.TokensSold.Gt(next.BondingSupply) {
			return nil, fmt.Errorf("%w: buy exceeds bonding supply of token %s", ErrInvalidState, tokenID)
		}
	case domain.SideSell:
		if next.RealEthReserve, err = curvemath.Sub(next.RealEthReserve, delta.EthAmount); err != nil {
			return nil, fmt.Errorf("apply sell to token %s: %w", tokenID, err)
		}
		if next.TokensSold, err = curvemath.Sub(next.TokensSold, delta.TokenAmount); err != nil {
			return nil, fmt.Errorf("apply sell to token %s: %w", tokenID, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidParameters, delta.Side)
	}

	next.PlatformFeesAccrued.Add(next.PlatformFeesAccrued, delta.PlatformFee)
	next.CreatorFeesAccrued.Add(next.CreatorFeesAccrued, delta.CreatorFee)
	next.TotalVolume.Add(next.TotalVolume, delta.Volume)
	next.TradeCount++
	next.Version = expectedVersion + 1

	if err := l.store.UpdateCAS(ctx, next, expectedVersion); err != nil {
		return nil, err
	}
	return next, nil
}

// MarkGraduating moves Active -> Graduating so no further curve trade
// can interleave with the liquidity migration.
func (l *Ledger) MarkGraduating(ctx context.Context, tokenID string, expectedVersion uint64) (*domain.TokenState, error) {
	return l.transition(ctx, tokenID, expectedVersion, domain.StatusActive, domain.StatusGraduating, nil)
}

// MarkGraduated seals the token. One-way; requires Graduating.
func (l *Ledger) MarkGraduated(ctx context.Context, tokenID string, expectedVersion uint64, record *domain.GraduationRecord) (*domain.TokenState, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: missing graduation record", ErrInvalidParameters)
	}
	return l.transition(ctx, tokenID, expectedVersion, domain.StatusGraduating, domain.StatusGraduated, func(s *domain.TokenState) {
		at := record.CompletedAt
		s.GraduatedAt = &at
	})
}

// MarkActive rolls a failed migration back from Graduating to Active so
// a token is never stranded mid-graduation.
func (l *Ledger) MarkActive(ctx context.Context, tokenID string, expectedVersion uint64) (*domain.TokenState, error) {
	return l.transition(ctx, tokenID, expectedVersion, domain.StatusGraduating, domain.StatusActive, nil)
}

func (l *Ledger) transition(ctx context.Context, tokenID string, expectedVersion uint64, from, to domain.TokenStatus, mutate func(*domain.TokenState)) (*domain.TokenState, error) {
	state, err := l.store.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if state.Status != from {
		return nil, fmt.Errorf("%w: token %s is %s, want %s", ErrInvalidTransition, tokenID, state.Status, from)
	}
	if state.Version != expectedVersion {
		return nil, storage.ErrVersionConflict
	}

	next := state.Clone()
	next.Status = to
	next.Version = expectedVersion + 1
	if mutate != nil {
		mutate(next)
	}

	if err := l.store.UpdateCAS(ctx, next, expectedVersion); err != nil {
		return nil, err
	}
	return next, nil
}
