package graduation_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/graduation"
	"token-launch-lab/internal/graduation/stub"
	"token-launch-lab/internal/ledger"
	"token-launch-lab/internal/storage/memory"
)

func eth(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

// newFixture creates a token that has absorbed one large buy so it has
// real reserves to migrate.
func newFixture(t *testing.T) (*ledger.Ledger, *memory.GraduationRecordStore, *domain.TokenState) {
	t.Helper()

	ledg := ledger.New(memory.NewTokenStateStore())
	records := memory.NewGraduationRecordStore()

	state, err := ledg.Create(context.Background(), ledger.CreateParams{
		ID:                    "tok-grad",
		Creator:               "creator",
		Symbol:                "GRAD",
		BootstrapVirtualEth:   eth(1),
		BootstrapVirtualToken: new(uint256.Int).Mul(uint256.NewInt(1e6), uint256.NewInt(1e18)),
		TotalSupply:           new(uint256.Int).Mul(uint256.NewInt(1e9), uint256.NewInt(1e18)),
		BondingSupplyBps:      8000,
		CreatedAt:             1700000000000,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	state, err = ledg.ApplyTrade(context.Background(), state.ID, state.Version, ledger.TradeDelta{
		Side:        domain.SideBuy,
		EthAmount:   eth(69),
		TokenAmount: new(uint256.Int).Mul(uint256.NewInt(900_000), uint256.NewInt(1e18)),
		PlatformFee: uint256.NewInt(0),
		CreatorFee:  uint256.NewInt(0),
		Volume:      eth(69),
	})
	if err != nil {
		t.Fatalf("ApplyTrade failed: %v", err)
	}
	return ledg, records, state
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestTriggerMigratesAndSeals(t *testing.T) {
	ledg, records, state := newFixture(t)
	venue := stub.New()
	ctrl := graduation.New(ledg, records, venue, quietLogger())

	record, err := ctrl.Trigger(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if record.TokenID != state.ID {
		t.Errorf("Record token = %s, want %s", record.TokenID, state.ID)
	}
	if !record.EthMigrated.Eq(state.RealEthReserve) {
		t.Errorf("EthMigrated = %s, want %s", record.EthMigrated.Dec(), state.RealEthReserve.Dec())
	}
	if !record.TokensMigrated.Eq(state.DexReserve) {
		t.Errorf("TokensMigrated = %s, want %s", record.TokensMigrated.Dec(), state.DexReserve.Dec())
	}
	if !record.LiquidityReceiptBurned {
		t.Error("Expected liquidity receipt burned")
	}

	pool := venue.Pool(record.ExternalPoolReference)
	if pool == nil {
		t.Fatalf("Venue has no pool %s", record.ExternalPoolReference)
	}
	if !pool.ReceiptLocked {
		t.Error("Expected pool receipt locked")
	}
	if pool.MaxSlippageBps != graduation.MaxPoolSlippageBps {
		t.Errorf("MaxSlippageBps = %d, want %d", pool.MaxSlippageBps, graduation.MaxPoolSlippageBps)
	}

	after, err := ledg.Get(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.Status != domain.StatusGraduated {
		t.Errorf("Status = %s, want %s", after.Status, domain.StatusGraduated)
	}
	if after.GraduatedAt == nil {
		t.Error("Expected GraduatedAt set")
	}
}

func TestTriggerIdempotentOnGraduated(t *testing.T) {
	ledg, records, state := newFixture(t)
	venue := stub.New()
	ctrl := graduation.New(ledg, records, venue, quietLogger())

	first, err := ctrl.Trigger(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("First trigger failed: %v", err)
	}

	second, err := ctrl.Trigger(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("Second trigger failed: %v", err)
	}
	if second.ExternalPoolReference != first.ExternalPoolReference {
		t.Errorf("Second trigger returned pool %s, want existing %s",
			second.ExternalPoolReference, first.ExternalPoolReference)
	}
	if venue.Pool("pool-tok-grad-2") != nil {
		t.Error("Second trigger must not create another pool")
	}
}

func TestTriggerRollsBackOnCreatePoolFailure(t *testing.T) {
	ledg, records, state := newFixture(t)
	venue := stub.New()
	venue.FailCreatePool = true
	ctrl := graduation.New(ledg, records, venue, quietLogger())

	_, err := ctrl.Trigger(context.Background(), state.ID)
	if !errors.Is(err, graduation.ErrGraduationFailed) {
		t.Fatalf("Expected ErrGraduationFailed, got %v", err)
	}

	after, err := ledg.Get(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.Status != domain.StatusActive {
		t.Errorf("Status after rollback = %s, want %s", after.Status, domain.StatusActive)
	}

	// Recovered token can graduate once the venue is healthy again.
	venue.FailCreatePool = false
	if _, err := ctrl.Trigger(context.Background(), state.ID); err != nil {
		t.Fatalf("Retrigger after rollback failed: %v", err)
	}
}

func TestTriggerRollsBackOnReceiptLockFailure(t *testing.T) {
	ledg, records, state := newFixture(t)
	venue := stub.New()
	venue.FailLockReceipt = true
	ctrl := graduation.New(ledg, records, venue, quietLogger())

	_, err := ctrl.Trigger(context.Background(), state.ID)
	if !errors.Is(err, graduation.ErrGraduationFailed) {
		t.Fatalf("Expected ErrGraduationFailed, got %v", err)
	}

	after, err := ledg.Get(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.Status != domain.StatusActive {
		t.Errorf("Status after rollback = %s, want %s", after.Status, domain.StatusActive)
	}
}
