// Package main drives a deterministic trade sequence against an
// in-memory launchpad: launch a token, buy it up to graduation, and
// print the resulting economics. Useful for eyeballing curve behavior
// and as a smoke test of the full engine path.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/executor"
	"token-launch-lab/internal/graduation/stub"
	"token-launch-lab/internal/launchpad"
	"token-launch-lab/internal/storage"
	"token-launch-lab/internal/storage/memory"
)

// creator is the base58 encoding of 32 zero bytes, a valid account.
const creator = "11111111111111111111111111111111"

func main() {
	symbol := flag.String("symbol", "SIM", "Token symbol to launch")
	buyEth := flag.Float64("buy-eth", 1.0, "ETH spent per simulated buy")
	maxTrades := flag.Int("max-trades", 10000, "Stop after this many trades even without graduation")
	sellRatio := flag.Float64("sell-ratio", 0.0, "Fraction of buys followed by a matching sell (0..1)")
	seed := flag.Int64("seed", 1, "Seed for the sell interleaving")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *buyEth <= 0 {
		logger.Fatal("--buy-eth must be positive")
	}
	if *sellRatio < 0 || *sellRatio > 1 {
		logger.Fatal("--sell-ratio must be in [0, 1]")
	}

	service := launchpad.New(launchpad.DefaultLaunchConfig(), launchpad.Deps{
		States:      memory.NewTokenStateStore(),
		Trades:      memory.NewTradeStore(),
		Graduations: memory.NewGraduationRecordStore(),
		Venue:       stub.New(),
		Logger:      logger,
	})

	ctx := context.Background()
	state, err := service.CreateToken(ctx, launchpad.CreateTokenParams{
		Creator: creator,
		Symbol:  *symbol,
	})
	if err != nil {
		logger.Fatalf("Create token: %v", err)
	}
	logger.Printf("Launched token %s", state.ID)

	// Fixed-size buys walk the price up the curve until the market cap
	// crosses the graduation threshold.
	buyWei := ethToWei(*buyEth)
	rng := rand.New(rand.NewSource(*seed))
	held := uint256.NewInt(0)

	var result *executor.Result
	trades := 0
	for trades < *maxTrades {
		result, err = service.ExecuteBuy(ctx, state.ID, creator, buyWei, nil)
		if err != nil && result == nil {
			logger.Fatalf("Buy %d: %v", trades+1, err)
		}
		trades++
		held.Add(held, result.Trade.OutputAmount)

		if result.Graduation != nil {
			break
		}

		if *sellRatio > 0 && rng.Float64() < *sellRatio && !held.IsZero() {
			sellAmount := new(uint256.Int).Div(held, uint256.NewInt(2))
			if sellAmount.IsZero() {
				continue
			}
			if _, err := service.ExecuteSell(ctx, state.ID, creator, sellAmount, nil); err != nil {
				logger.Fatalf("Sell after buy %d: %v", trades, err)
			}
			trades++
			held.Sub(held, sellAmount)
		}
	}

	final, err := service.GetState(ctx, state.ID)
	if err != nil {
		logger.Fatalf("Load final state: %v", err)
	}
	snapshot, err := service.Snapshot(ctx, state.ID)
	if err != nil {
		logger.Fatalf("Snapshot: %v", err)
	}
	platformFees, creatorFees, err := service.FeeBalances(ctx, state.ID)
	if err != nil {
		logger.Fatalf("Fee balances: %v", err)
	}

	summary := map[string]any{
		"token_id":      final.ID,
		"status":        string(final.Status),
		"trades":        trades,
		"tokens_sold":   final.TokensSold.Dec(),
		"real_eth":      final.RealEthReserve.Dec(),
		"total_volume":  final.TotalVolume.Dec(),
		"platform_fees": platformFees.Dec(),
		"creator_fees":  creatorFees.Dec(),
		"price_eth":     snapshot.Price.String(),
		"market_cap":    snapshot.MarketCap.String(),
	}
	if record, err := service.GetGraduation(ctx, state.ID); err == nil {
		summary["pool"] = record.ExternalPoolReference
		summary["eth_migrated"] = record.EthMigrated.Dec()
		summary["tokens_migrated"] = record.TokensMigrated.Dec()
	} else if !isNotFound(err) {
		logger.Fatalf("Graduation record: %v", err)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logger.Fatalf("Encode summary: %v", err)
		}
		return
	}

	fmt.Printf("Token %s: %s after %d trades\n", final.ID, final.Status, trades)
	fmt.Printf("  tokens sold:    %s\n", final.TokensSold.Dec())
	fmt.Printf("  real reserve:   %s wei\n", final.RealEthReserve.Dec())
	fmt.Printf("  total volume:   %s wei\n", final.TotalVolume.Dec())
	fmt.Printf("  fees (plat/cr): %s / %s wei\n", platformFees.Dec(), creatorFees.Dec())
	fmt.Printf("  price:          %s ETH\n", snapshot.Price.String())
	fmt.Printf("  market cap:     %s ETH\n", snapshot.MarketCap.String())
	if pool, ok := summary["pool"]; ok {
		fmt.Printf("  migrated to:    %v\n", pool)
	}
}

// ethToWei converts a float ETH amount to wei. Good to the precision a
// simulation flag needs, not for accounting.
func ethToWei(eth float64) *uint256.Int {
	milli := uint64(eth * 1000)
	wei := new(uint256.Int).Mul(uint256.NewInt(milli), uint256.NewInt(1e15))
	return wei
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
