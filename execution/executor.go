package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/risk"
	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXECUTION LAYER - Bet submission
// ═══════════════════════════════════════════════════════════════════════════════
//
// Responsibilities:
// 1. Decompose the progression stake into unit × count
// 2. Submit through the platform with bounded fixed-backoff retries
// 3. Record virtual bets without touching the platform
//
// Flow:
//   Session → Executor → Platform.PlaceBet
//                 ↓
//         SUBMITTED | VIRTUAL | FAILED
//
// ═══════════════════════════════════════════════════════════════════════════════

// BetState is the outcome of one placement attempt
type BetState string

const (
	BetSubmitted BetState = "SUBMITTED"
	BetVirtual   BetState = "VIRTUAL"
	BetFailed    BetState = "FAILED"
)

var (
	ErrStakeTooSmall = errors.New("stake below one unit")
	ErrBetFailed     = errors.New("bet placement failed")
)

// ExecutorConfig holds executor settings
type ExecutorConfig struct {
	MaxAttempts int           // total submissions before giving up (default: 3)
	RetryWait   time.Duration // fixed wait between attempts (default: 5s)
}

// DefaultExecutorConfig returns sensible defaults
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxAttempts: 3,
		RetryWait:   5 * time.Second,
	}
}

// Request is what a session wants wagered on one round
type Request struct {
	Game    types.GameKind
	RoundID string
	Side    types.Side
	Amount  decimal.Decimal // progression stake before decomposition
	Virtual bool
}

// Executor places bets for any number of sessions. Stateless apart from config.
type Executor struct {
	config ExecutorConfig
	now    func() time.Time
}

// NewExecutor creates an executor, filling zero values from the defaults
func NewExecutor(cfg ExecutorConfig) *Executor {
	def := DefaultExecutorConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryWait < 0 {
		cfg.RetryWait = def.RetryWait
	}
	return &Executor{config: cfg, now: time.Now}
}

// Place decomposes and submits req. The returned entry is what the caller
// should track until settlement.
func (x *Executor) Place(ctx context.Context, p types.Platform, req Request) (types.PendingEntry, BetState, error) {
	details := risk.Decompose(req.Amount)
	if details.Count < 1 {
		return types.PendingEntry{}, BetFailed, fmt.Errorf("%w: %s", ErrStakeTooSmall, req.Amount)
	}

	entry := types.PendingEntry{
		RoundID:    req.RoundID,
		Side:       req.Side,
		Requested:  req.Amount,
		Amount:     details.Actual,
		UnitAmount: details.Unit,
		UnitCount:  details.Count,
		Virtual:    req.Virtual,
	}

	if req.Virtual {
		entry.PlacedAt = x.now()
		log.Debug().
			Str("round", req.RoundID).
			Str("side", req.Side.Label()).
			Str("amount", details.Actual.String()).
			Msg("🧪 Virtual bet recorded")
		return entry, BetVirtual, nil
	}

	order := types.BetOrder{
		Game:       req.Game,
		RoundID:    req.RoundID,
		Side:       req.Side,
		UnitAmount: details.Unit,
		UnitCount:  details.Count,
	}

	var lastErr error
	for attempt := 1; attempt <= x.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return types.PendingEntry{}, BetFailed, ctx.Err()
			case <-time.After(x.config.RetryWait):
			}
		}

		lastErr = p.PlaceBet(ctx, order)
		if lastErr == nil {
			entry.PlacedAt = x.now()
			return entry, BetSubmitted, nil
		}
		if errors.Is(lastErr, context.Canceled) {
			break
		}

		log.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max", x.config.MaxAttempts).
			Str("round", req.RoundID).
			Msg("⚠️ Bet submission failed")
	}

	return types.PendingEntry{}, BetFailed, fmt.Errorf("%w: round %s: %v", ErrBetFailed, req.RoundID, lastErr)
}
