// Package stub provides an in-memory Venue for tests and local runs.
package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/graduation"
)

// Pool is one seeded pool held by the stub venue.
type Pool struct {
	TokenID        string
	EthAmount      *uint256.Int
	TokenAmount    *uint256.Int
	PriceRatio     *uint256.Int
	MaxSlippageBps uint64
	ReceiptLocked  bool
}

// Venue records pools in memory. Failure modes can be injected for
// rollback tests.
type Venue struct {
	mu    sync.Mutex
	pools map[string]*Pool
	seq   uint64

	// FailCreatePool and FailLockReceipt inject venue failures.
	FailCreatePool  bool
	FailLockReceipt bool
}

// Compile-time interface check.
var _ graduation.Venue = (*Venue)(nil)

// New creates an empty stub venue.
func New() *Venue {
	return &Venue{pools: make(map[string]*Pool)}
}

func (v *Venue) CreatePool(ctx context.Context, tokenID string, ethAmount, tokenAmount, priceRatio *uint256.Int, maxSlippageBps uint64) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.FailCreatePool {
		return "", errors.New("venue unavailable")
	}

	v.seq++
	ref := fmt.Sprintf("pool-%s-%d", tokenID, v.seq)
	v.pools[ref] = &Pool{
		TokenID:        tokenID,
		EthAmount:      new(uint256.Int).Set(ethAmount),
		TokenAmount:    new(uint256.Int).Set(tokenAmount),
		PriceRatio:     new(uint256.Int).Set(priceRatio),
		MaxSlippageBps: maxSlippageBps,
	}
	return ref, nil
}

func (v *Venue) LockOrBurnLiquidityReceipt(ctx context.Context, poolRef string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.FailLockReceipt {
		return errors.New("receipt lock rejected")
	}

	pool, ok := v.pools[poolRef]
	if !ok {
		return fmt.Errorf("unknown pool %s", poolRef)
	}
	pool.ReceiptLocked = true
	return nil
}

// Pool returns the recorded pool for a reference, or nil.
func (v *Venue) Pool(ref string) *Pool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pools[ref]
}
