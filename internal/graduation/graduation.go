// Package graduation drives the one-way migration of a token's
// liquidity from the bonding curve to an external trading venue once
// its market cap crosses the graduation threshold.
//
// The controller owns the ACTIVE -> GRADUATING -> GRADUATED state
// machine. GRADUATING exists so no curve trade can interleave with the
// migration; a venue failure rolls the token back to ACTIVE instead of
// stranding it.
package graduation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/ledger"
	"token-launch-lab/internal/pricing"
	"token-launch-lab/internal/storage"
)

var (
	// ErrGraduationFailed is returned when the venue rejects the
	// migration. The token has been rolled back to ACTIVE.
	ErrGraduationFailed = errors.New("graduation failed")

	// ErrGraduationInProgress is returned when another trigger already
	// holds the token in GRADUATING.
	ErrGraduationInProgress = errors.New("graduation in progress")
)

// MaxPoolSlippageBps bounds the price drift the venue may apply when
// seeding the pool relative to the final curve price.
const MaxPoolSlippageBps = 500

// Venue creates the external liquidity pool. Implementations talk to a
// real DEX; tests use the in-memory stub.
type Venue interface {
	// CreatePool seeds a pool with the migrated reserves at the given
	// 1e18 fixed-point price ratio and returns an opaque pool
	// reference.
	CreatePool(ctx context.Context, tokenID string, ethAmount, tokenAmount, priceRatio *uint256.Int, maxSlippageBps uint64) (string, error)

	// LockOrBurnLiquidityReceipt permanently locks the LP position so
	// the migrated liquidity cannot be withdrawn.
	LockOrBurnLiquidityReceipt(ctx context.Context, poolRef string) error
}

// Controller performs graduations. Safe for concurrent use; the ledger
// CAS serializes competing triggers on one token.
type Controller struct {
	ledger  *ledger.Ledger
	records storage.GraduationRecordStore
	venue   Venue
	logger  *log.Logger
	now     func() time.Time
}

// New creates a graduation controller.
func New(ledg *ledger.Ledger, records storage.GraduationRecordStore, venue Venue, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		ledger:  ledg,
		records: records,
		venue:   venue,
		logger:  logger,
		now:     time.Now,
	}
}

// Trigger migrates the token's liquidity to the venue and seals it as
// GRADUATED. Idempotent: triggering an already graduated token returns
// its existing record without touching the venue.
//
// Migrated amounts: the full real ETH reserve and the reserved DEX
// portion of the supply. Accrued fees stay on the platform side and
// are never part of the pool.
func (c *Controller) Trigger(ctx context.Context, tokenID string) (*domain.GraduationRecord, error) {
	state, err := c.ledger.Get(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("load token %s: %w", tokenID, err)
	}

	switch state.Status {
	case domain.StatusGraduated:
		return c.records.GetByTokenID(ctx, tokenID)
	case domain.StatusGraduating:
		return nil, fmt.Errorf("%w: token %s", ErrGraduationInProgress, tokenID)
	}

	priceRatio, err := pricing.CurrentPrice(state)
	if err != nil {
		return nil, fmt.Errorf("final price for token %s: %w", tokenID, err)
	}

	locked, err := c.ledger.MarkGraduating(ctx, tokenID, state.Version)
	if err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("lock token %s for migration: %w", tokenID, err)
	}

	ethMigrated := new(uint256.Int).Set(locked.RealEthReserve)
	tokensMigrated := new(uint256.Int).Set(locked.DexReserve)

	poolRef, err := c.venue.CreatePool(ctx, tokenID, ethMigrated, tokensMigrated, priceRatio, MaxPoolSlippageBps)
	if err != nil {
		return nil, c.rollback(ctx, tokenID, locked.Version, fmt.Errorf("%w: create pool for token %s: %v", ErrGraduationFailed, tokenID, err))
	}

	if err := c.venue.LockOrBurnLiquidityReceipt(ctx, poolRef); err != nil {
		return nil, c.rollback(ctx, tokenID, locked.Version, fmt.Errorf("%w: lock liquidity receipt %s for token %s: %v", ErrGraduationFailed, poolRef, tokenID, err))
	}

	record := &domain.GraduationRecord{
		TokenID:                tokenID,
		ExternalPoolReference:  poolRef,
		EthMigrated:            ethMigrated,
		TokensMigrated:         tokensMigrated,
		LiquidityReceiptBurned: true,
		CompletedAt:            c.now().UnixMilli(),
	}
	if err := c.records.Insert(ctx, record); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("persist graduation record for token %s: %w", tokenID, err)
	}

	if _, err := c.ledger.MarkGraduated(ctx, tokenID, locked.Version, record); err != nil {
		return nil, fmt.Errorf("seal token %s as graduated: %w", tokenID, err)
	}

	c.logger.Printf("Token %s graduated: pool=%s eth=%s tokens=%s",
		tokenID, poolRef, ethMigrated.Dec(), tokensMigrated.Dec())
	return record, nil
}

// rollback returns the token to ACTIVE after a venue failure. The
// original failure is always the error surfaced; a rollback failure is
// logged because the token is then stuck in GRADUATING and needs
// operator attention.
func (c *Controller) rollback(ctx context.Context, tokenID string, graduatingVersion uint64, cause error) error {
	if _, err := c.ledger.MarkActive(ctx, tokenID, graduatingVersion); err != nil {
		c.logger.Printf("WARNING: rollback of token %s failed, stuck in GRADUATING: %v", tokenID, err)
	}
	return cause
}
