// Package launchpad is the embeddable facade of the launch platform:
// token creation, quote previews, trade execution, state and history
// reads. It wires the ledger, pricing, executor, graduation and stream
// components behind one service type so hosts embed a single dependency.
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/holiman/uint256"

	"token-launch-lab/internal/account"
	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/executor"
	"token-launch-lab/internal/graduation"
	"token-launch-lab/internal/idhash"
	"token-launch-lab/internal/ledger"
	"token-launch-lab/internal/metrics"
	"token-launch-lab/internal/observability"
	"token-launch-lab/internal/pricing"
	"token-launch-lab/internal/storage"
	"token-launch-lab/internal/stream"
)

// LaunchConfig fixes the economics every token launches with.
type LaunchConfig struct {
	BootstrapVirtualEth   *uint256.Int
	BootstrapVirtualToken *uint256.Int
	TotalSupply           *uint256.Int
	BondingSupplyBps      uint64

	Curve pricing.CurveConfig
}

// DefaultLaunchConfig mirrors the reference platform economics:
// 1 ETH / 1M tokens of virtual bootstrap liquidity, 1B token supply
// with 80% sold via the curve and 20% reserved to seed the DEX pool.
func DefaultLaunchConfig() LaunchConfig {
	return LaunchConfig{
		BootstrapVirtualEth:   new(uint256.Int).Mul(uint256.NewInt(1), uint256.NewInt(1e18)),
		BootstrapVirtualToken: new(uint256.Int).Mul(uint256.NewInt(1e6), uint256.NewInt(1e18)),
		TotalSupply:           new(uint256.Int).Mul(uint256.NewInt(1e9), uint256.NewInt(1e18)),
		BondingSupplyBps:      8000,
		Curve:                 pricing.DefaultConfig(),
	}
}

// Deps are the collaborators the service is built from.
type Deps struct {
	States      storage.TokenStateStore
	Trades      storage.TradeStore
	Graduations storage.GraduationRecordStore
	Venue       graduation.Venue

	// Balances may be nil to skip sell-side balance checks.
	Balances executor.BalanceChecker
	// Hub may be nil to disable the trade feed.
	Hub    *stream.Hub
	Logger *log.Logger
}

// Service is the platform facade. Safe for concurrent use.
type Service struct {
	config    LaunchConfig
	ledger    *ledger.Ledger
	executor  *executor.Executor
	graduator *graduation.Controller
	projector *metrics.Projector
	trades    storage.TradeStore

	graduations storage.GraduationRecordStore

	hub    *stream.Hub
	logger *log.Logger
	now    func() time.Time
}

// New wires a service from its stores and collaborators.
func New(config LaunchConfig, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	ledg := ledger.New(deps.States)
	grad := graduation.New(ledg, deps.Graduations, deps.Venue, logger)
	exec := executor.New(ledg, deps.Trades, grad, deps.Balances, config.Curve, logger)
	proj := metrics.New(ledg, deps.Trades, config.Curve)

	return &Service{
		config:      config,
		ledger:      ledg,
		executor:    exec,
		graduator:   grad,
		projector:   proj,
		trades:      deps.Trades,
		graduations: deps.Graduations,
		hub:         deps.Hub,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTokenParams describes one launch request.
type CreateTokenParams struct {
	Creator string // base58 address
	Symbol  string
}

// CreateToken validates the creator address, derives the deterministic
// token id and registers the token on the curve.
func (s *Service) CreateToken(ctx context.Context, p CreateTokenParams) (*domain.TokenState, error) {
	if err := account.Validate(p.Creator); err != nil {
		return nil, fmt.Errorf("creator address: %w", err)
	}
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: missing symbol", ledger.ErrInvalidParameters)
	}

	createdAt := s.now().UnixMilli()
	tokenID := idhash.ComputeTokenID(p.Creator, p.Symbol, createdAt)

	state, err := s.ledger.Create(ctx, ledger.CreateParams{
		ID:                    tokenID,
		Creator:               p.Creator,
		Symbol:                p.Symbol,
		BootstrapVirtualEth:   s.config.BootstrapVirtualEth,
		BootstrapVirtualToken: s.config.BootstrapVirtualToken,
		TotalSupply:           s.config.TotalSupply,
		BondingSupplyBps:      s.config.BondingSupplyBps,
		CreatedAt:             createdAt,
	})
	if err != nil {
		return nil, err
	}

	observability.DefaultMetrics.TokensCreated.Inc()
	s.logger.Printf("Token %s (%s) launched by %s", tokenID, p.Symbol, p.Creator)
	return state, nil
}

// QuoteBuy previews a buy without executing it. The quote is advisory:
// execution re-quotes against the state it commits on.
func (s *Service) QuoteBuy(ctx context.Context, tokenID string, ethIn *uint256.Int) (*pricing.Quote, error) {
	state, err := s.ledger.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if state.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: token %s is %s", ledger.ErrInvalidState, tokenID, state.Status)
	}
	start := s.now()
	quote, err := pricing.QuoteBuy(state, ethIn, s.config.Curve)
	observability.DefaultMetrics.QuoteLatency.WithLabelValues(string(domain.SideBuy)).Observe(time.Since(start).Seconds())
	return quote, err
}

// QuoteSell previews a sell without executing it.
func (s *Service) QuoteSell(ctx context.Context, tokenID string, tokensIn *uint256.Int) (*pricing.Quote, error) {
	state, err := s.ledger.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if state.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: token %s is %s", ledger.ErrInvalidState, tokenID, state.Status)
	}
	start := s.now()
	quote, err := pricing.QuoteSell(state, tokensIn, s.config.Curve)
	observability.DefaultMetrics.QuoteLatency.WithLabelValues(string(domain.SideSell)).Observe(time.Since(start).Seconds())
	return quote, err
}

// ExecuteBuy runs a buy to completion and publishes it to the feed.
func (s *Service) ExecuteBuy(ctx context.Context, tokenID, trader string, ethIn, minTokensOut *uint256.Int) (*executor.Result, error) {
	if err := account.Validate(trader); err != nil {
		return nil, fmt.Errorf("trader address: %w", err)
	}
	start := s.now()
	result, err := s.executor.ExecuteBuy(ctx, tokenID, trader, ethIn, minTokensOut)
	s.finishTrade(domain.SideBuy, start, result, err)
	return result, err
}

// ExecuteSell runs a sell to completion and publishes it to the feed.
func (s *Service) ExecuteSell(ctx context.Context, tokenID, trader string, tokensIn, minEthOut *uint256.Int) (*executor.Result, error) {
	if err := account.Validate(trader); err != nil {
		return nil, fmt.Errorf("trader address: %w", err)
	}
	start := s.now()
	result, err := s.executor.ExecuteSell(ctx, tokenID, trader, tokensIn, minEthOut)
	s.finishTrade(domain.SideSell, start, result, err)
	return result, err
}

// finishTrade records metrics for an execution attempt and publishes
// the trade when one committed. A trade can commit even when err is
// non-nil (graduation deferral), so Result decides, not err.
func (s *Service) finishTrade(side domain.Side, start time.Time, result *executor.Result, err error) {
	if result != nil && result.Trade != nil {
		observability.RecordTrade(string(side), volumeWei(result.Trade), s.now().Sub(start).Seconds(), result.Trade.Timestamp)
		if result.Graduation != nil {
			observability.RecordGraduation(true)
		}
		if s.hub != nil {
			s.hub.Publish(result.Trade)
		}
	}
	if err != nil {
		observability.RecordTradeError(string(side), errorReason(err))
		if errors.Is(err, graduation.ErrGraduationFailed) {
			observability.RecordGraduation(false)
		}
	}
}

// volumeWei is the gross ETH notional of a trade as a float for the
// volume counter. Precision loss is acceptable for monitoring.
func volumeWei(t *domain.Trade) float64 {
	if t.Side == domain.SideBuy {
		return float64(t.GrossInputAmount.Uint64())
	}
	return float64(t.NetAmount.Uint64())
}

// errorReason buckets execution errors into stable metric labels.
func errorReason(err error) string {
	switch {
	case errors.Is(err, executor.ErrContention):
		return "contention"
	case errors.Is(err, executor.ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, executor.ErrInsufficientBalance):
		return "balance"
	case errors.Is(err, pricing.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, pricing.ErrInsufficientOutput):
		return "insufficient_output"
	case errors.Is(err, pricing.ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ledger.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, graduation.ErrGraduationFailed):
		return "graduation_failed"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// GetState returns the token's current state.
func (s *Service) GetState(ctx context.Context, tokenID string) (*domain.TokenState, error) {
	return s.ledger.Get(ctx, tokenID)
}

// ListTokens returns all launched tokens ordered by creation time.
func (s *Service) ListTokens(ctx context.Context) ([]*domain.TokenState, error) {
	return s.ledger.List(ctx)
}

// ListTrades pages through a token's history: up to limit trades with
// sequence numbers strictly greater than sinceSequence, ascending.
func (s *Service) ListTrades(ctx context.Context, tokenID string, sinceSequence uint64, limit int) ([]*domain.Trade, error) {
	return s.trades.GetSince(ctx, tokenID, sinceSequence, limit)
}

// RetryGraduation re-runs a liquidity migration that was deferred by a
// venue failure. The token must still qualify; tokens below the
// threshold are rejected so the curve cannot be drained early.
func (s *Service) RetryGraduation(ctx context.Context, tokenID string) (*domain.GraduationRecord, error) {
	state, err := s.ledger.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if state.Status == domain.StatusActive {
		cap, err := pricing.MarketCap(state)
		if err != nil {
			return nil, fmt.Errorf("market cap of token %s: %w", tokenID, err)
		}
		if cap.Lt(s.config.Curve.GraduationThreshold) {
			return nil, fmt.Errorf("%w: token %s below graduation threshold", ledger.ErrInvalidState, tokenID)
		}
	}

	record, err := s.graduator.Trigger(ctx, tokenID)
	if err != nil {
		if errors.Is(err, graduation.ErrGraduationFailed) {
			observability.RecordGraduation(false)
		}
		return nil, err
	}
	observability.RecordGraduation(true)
	return record, nil
}

// GetGraduation returns the token's graduation record, or
// storage.ErrNotFound while it is still on the curve.
func (s *Service) GetGraduation(ctx context.Context, tokenID string) (*domain.GraduationRecord, error) {
	return s.graduations.GetByTokenID(ctx, tokenID)
}

// Snapshot returns the token's display metrics.
func (s *Service) Snapshot(ctx context.Context, tokenID string) (*metrics.Snapshot, error) {
	return s.projector.Snapshot(ctx, tokenID)
}

// FeeBalances reports the accrued platform and creator fees for a
// token. Withdrawal is settled externally; the engine only accounts.
func (s *Service) FeeBalances(ctx context.Context, tokenID string) (platform, creator *uint256.Int, err error) {
	state, err := s.ledger.Get(ctx, tokenID)
	if err != nil {
		return nil, nil, err
	}
	return state.PlatformFeesAccrued, state.CreatorFeesAccrued, nil
}
