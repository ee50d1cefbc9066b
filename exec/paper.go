package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PAPER PLATFORM - In-memory game for demo runs and tests
// ═══════════════════════════════════════════════════════════════════════════════
//
// Rounds only settle when Settle is called (or on the Run ticker), so tests
// drive the game one round at a time. Digits come from a caller-supplied
// draw function keyed by the round sequence number.
//
// ═══════════════════════════════════════════════════════════════════════════════

const paperHistory = 10

var (
	ErrRoundClosed         = errors.New("round is not open")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// DrawFunc returns the digit for the n-th round
type DrawFunc func(n int64) int

// Paper is a single-account simulated platform
type Paper struct {
	mu sync.Mutex

	draw    DrawFunc
	prefix  string
	seq     int64
	balance decimal.Decimal
	settled []types.Settlement // most recent first
	open    []types.BetOrder   // bets on the open round
	placed  []types.BetOrder   // every bet ever accepted

	// fail the next n calls with a transport-style error
	failures int
}

// NewPaper opens round 1 with the given starting balance
func NewPaper(balance decimal.Decimal, draw DrawFunc) *Paper {
	if draw == nil {
		draw = func(n int64) int { return int((n*7 + 3) % 10) }
	}
	return &Paper{
		draw:    draw,
		prefix:  time.Now().UTC().Format("20060102"),
		seq:     1,
		balance: balance,
	}
}

func (p *Paper) roundID(seq int64) string {
	return fmt.Sprintf("%s%05d", p.prefix, seq)
}

// FailNext makes the next n platform calls return an error
func (p *Paper) FailNext(n int) {
	p.mu.Lock()
	p.failures = n
	p.mu.Unlock()
}

func (p *Paper) fail() error {
	if p.failures > 0 {
		p.failures--
		return errors.New("paper: simulated transport failure")
	}
	return nil
}

// OpenRound implements types.Platform
func (p *Paper) OpenRound(_ context.Context, _ types.GameKind) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return "", err
	}
	return p.roundID(p.seq), nil
}

// RecentSettlements implements types.Platform
func (p *Paper) RecentSettlements(_ context.Context, _ types.GameKind) ([]types.Settlement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return nil, err
	}
	out := make([]types.Settlement, len(p.settled))
	copy(out, p.settled)
	return out, nil
}

// PlaceBet implements types.Platform
func (p *Paper) PlaceBet(_ context.Context, order types.BetOrder) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return err
	}
	if order.RoundID != p.roundID(p.seq) {
		return fmt.Errorf("%w: %s", ErrRoundClosed, order.RoundID)
	}
	total := order.Total()
	if total.GreaterThan(p.balance) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, total, p.balance)
	}
	p.balance = p.balance.Sub(total)
	p.open = append(p.open, order)
	p.placed = append(p.placed, order)
	return nil
}

// Balance implements types.Platform
func (p *Paper) Balance(_ context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return decimal.Zero, err
	}
	return p.balance, nil
}

// Settle draws the open round, pays winners and opens the next one
func (p *Paper) Settle() types.Settlement {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := types.Settlement{RoundID: p.roundID(p.seq), Digit: ((p.draw(p.seq) % 10) + 10) % 10}
	payout := decimal.NewFromInt(1).Add(decimalPayout)
	for _, bet := range p.open {
		if bet.Side == s.Side() {
			p.balance = p.balance.Add(bet.Total().Mul(payout))
		}
	}
	p.open = p.open[:0]

	p.settled = append([]types.Settlement{s}, p.settled...)
	if len(p.settled) > paperHistory {
		p.settled = p.settled[:paperHistory]
	}
	p.seq++
	return s
}

// Placed returns every accepted bet in order
func (p *Paper) Placed() []types.BetOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.BetOrder(nil), p.placed...)
}

// Run settles a round every interval until ctx is done
func (p *Paper) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := p.Settle()
			log.Debug().Str("round", s.RoundID).Int("digit", s.Digit).Msg("📄 Paper round settled")
		}
	}
}

// decimalPayout mirrors the platform's 96% win payout
var decimalPayout = decimal.RequireFromString("0.96")
