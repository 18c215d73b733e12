// Package executor is the authoritative write path for curve trades.
// It quotes against a snapshot, commits through the ledger's
// compare-and-swap, appends the immutable Trade record, and triggers
// graduation when the crossing trade pushes market cap over the
// threshold. Lost CAS races are retried a bounded number of times with
// a fresh quote each attempt.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/fees"
	"token-launch-lab/internal/idhash"
	"token-launch-lab/internal/ledger"
	"token-launch-lab/internal/pricing"
	"token-launch-lab/internal/storage"
)

var (
	// ErrContention is returned after every retry of a trade lost its
	// CAS race. The trade had no effect; the caller may resubmit.
	ErrContention = errors.New("trade contention")

	// ErrSlippageExceeded is returned when the freshly quoted output is
	// below the trader's minimum. The trade had no effect.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrInsufficientBalance is returned when a seller does not hold
	// the tokens being sold.
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// maxAttempts bounds CAS retries per trade.
const maxAttempts = 3

// BalanceChecker reports a trader's token holdings. Custody is
// external; the executor only consults it to reject naked sells.
type BalanceChecker interface {
	TokenBalance(ctx context.Context, trader, tokenID string) (*uint256.Int, error)
}

// Graduator migrates a token off the curve once it qualifies.
type Graduator interface {
	Trigger(ctx context.Context, tokenID string) (*domain.GraduationRecord, error)
}

// Result carries the outcome of an executed trade.
type Result struct {
	Trade *domain.Trade
	State *domain.TokenState

	// Graduation is non-nil when this trade pushed the token over the
	// threshold and the migration succeeded.
	Graduation *domain.GraduationRecord
}

// Executor runs trades to completion. Safe for concurrent use.
type Executor struct {
	ledger    *ledger.Ledger
	trades    storage.TradeStore
	graduator Graduator
	balances  BalanceChecker
	cfg       pricing.CurveConfig
	logger    *log.Logger
	now       func() time.Time
}

// New creates an executor. balances may be nil, in which case sell-side
// balance checks are skipped.
func New(ledg *ledger.Ledger, trades storage.TradeStore, graduator Graduator, balances BalanceChecker, cfg pricing.CurveConfig, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		ledger:    ledg,
		trades:    trades,
		graduator: graduator,
		balances:  balances,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ExecuteBuy spends ethIn against the curve for trader. minTokensOut is
// the slippage floor; pass nil to accept any output. When the buy
// crosses the graduation threshold the migration runs synchronously: a
// venue failure is surfaced as an error alongside the already-committed
// Trade in the Result.
func (e *Executor) ExecuteBuy(ctx context.Context, tokenID, trader string, ethIn, minTokensOut *uint256.Int) (*Result, error) {
	if trader == "" {
		return nil, fmt.Errorf("%w: missing trader", ledger.ErrInvalidParameters)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		state, err := e.ledger.Get(ctx, tokenID)
		if err != nil {
			return nil, err
		}

		quote, err := pricing.QuoteBuy(state, ethIn, e.cfg)
		if err != nil {
			return nil, err
		}
		if minTokensOut != nil && quote.AmountOut.Lt(minTokensOut) {
			return nil, fmt.Errorf("%w: quoted %s tokens, minimum %s",
				ErrSlippageExceeded, quote.AmountOut.Dec(), minTokensOut.Dec())
		}

		split, err := fees.Split(quote.FeeAmount, e.cfg.PlatformFeeBps, e.cfg.CreatorFeeBps)
		if err != nil {
			return nil, err
		}

		next, err := e.ledger.ApplyTrade(ctx, tokenID, state.Version, ledger.TradeDelta{
			Side:        domain.SideBuy,
			EthAmount:   quote.NetAmount,
			TokenAmount: quote.AmountOut,
			PlatformFee: split.PlatformShare,
			CreatorFee:  split.CreatorShare,
			Volume:      ethIn,
		})
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		trade, err := e.recordTrade(ctx, next, trader, domain.SideBuy, ethIn, quote)
		if err != nil {
			return nil, err
		}
		result := &Result{Trade: trade, State: next}

		crossed, err := e.crossedThreshold(next)
		if err != nil {
			return result, err
		}
		if crossed {
			record, gerr := e.graduator.Trigger(ctx, tokenID)
			if gerr != nil {
				// The buy itself is committed; only the migration
				// failed and will rerun on a later trigger.
				return result, fmt.Errorf("trade %s committed, graduation deferred: %w", trade.ID, gerr)
			}
			result.Graduation = record
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: token %s after %d attempts", ErrContention, tokenID, maxAttempts)
}

// ExecuteSell returns tokensIn to the curve for trader. minEthOut is
// the slippage floor; pass nil to accept any payout.
func (e *Executor) ExecuteSell(ctx context.Context, tokenID, trader string, tokensIn, minEthOut *uint256.Int) (*Result, error) {
	if trader == "" {
		return nil, fmt.Errorf("%w: missing trader", ledger.ErrInvalidParameters)
	}

	if e.balances != nil {
		balance, err := e.balances.TokenBalance(ctx, trader, tokenID)
		if err != nil {
			return nil, fmt.Errorf("check balance of %s: %w", trader, err)
		}
		if tokensIn != nil && balance.Lt(tokensIn) {
			return nil, fmt.Errorf("%w: trader %s holds %s, selling %s",
				ErrInsufficientBalance, trader, balance.Dec(), tokensIn.Dec())
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		state, err := e.ledger.Get(ctx, tokenID)
		if err != nil {
			return nil, err
		}

		quote, err := pricing.QuoteSell(state, tokensIn, e.cfg)
		if err != nil {
			return nil, err
		}
		if minEthOut != nil && quote.AmountOut.Lt(minEthOut) {
			return nil, fmt.Errorf("%w: quoted %s wei, minimum %s",
				ErrSlippageExceeded, quote.AmountOut.Dec(), minEthOut.Dec())
		}

		split, err := fees.Split(quote.FeeAmount, e.cfg.PlatformFeeBps, e.cfg.CreatorFeeBps)
		if err != nil {
			return nil, err
		}

		next, err := e.ledger.ApplyTrade(ctx, tokenID, state.Version, ledger.TradeDelta{
			Side:        domain.SideSell,
			EthAmount:   quote.NetAmount,
			TokenAmount: tokensIn,
			PlatformFee: split.PlatformShare,
			CreatorFee:  split.CreatorShare,
			Volume:      quote.NetAmount,
		})
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		trade, err := e.recordTrade(ctx, next, trader, domain.SideSell, tokensIn, quote)
		if err != nil {
			return nil, err
		}
		return &Result{Trade: trade, State: next}, nil
	}

	return nil, fmt.Errorf("%w: token %s after %d attempts", ErrContention, tokenID, maxAttempts)
}

// recordTrade appends the immutable trade row. The sequence number is
// the post-trade count, so it is monotonic per token and gap-free.
func (e *Executor) recordTrade(ctx context.Context, state *domain.TokenState, trader string, side domain.Side, grossIn *uint256.Int, quote *pricing.Quote) (*domain.Trade, error) {
	priceAfter, err := pricing.CurrentPrice(state)
	if err != nil {
		return nil, fmt.Errorf("price after trade on token %s: %w", state.ID, err)
	}

	trade := &domain.Trade{
		ID:               idhash.ComputeTradeID(state.ID, trader, string(side), state.TradeCount),
		TokenID:          state.ID,
		Trader:           trader,
		Side:             side,
		GrossInputAmount: new(uint256.Int).Set(grossIn),
		FeeAmount:        quote.FeeAmount,
		NetAmount:        quote.NetAmount,
		OutputAmount:     quote.AmountOut,
		PriceAfter:       priceAfter,
		Timestamp:        e.now().UnixMilli(),
		SequenceNumber:   state.TradeCount,
	}
	if err := e.trades.Insert(ctx, trade); err != nil {
		return nil, fmt.Errorf("append trade %s: %w", trade.ID, err)
	}
	return trade, nil
}

// crossedThreshold reports whether the post-trade market cap reached
// the graduation threshold.
func (e *Executor) crossedThreshold(state *domain.TokenState) (bool, error) {
	if state.Status != domain.StatusActive {
		return false, nil
	}
	cap, err := pricing.MarketCap(state)
	if err != nil {
		return false, fmt.Errorf("market cap of token %s: %w", state.ID, err)
	}
	return !cap.Lt(e.cfg.GraduationThreshold), nil
}
