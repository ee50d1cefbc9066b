package strategy

import (
	"fmt"
	"strings"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY INTERFACE - Plug-in pattern for predictors
// ═══════════════════════════════════════════════════════════════════════════════
//
// All strategies implement this interface:
//   Decide(Input) Decision    - pick a side or skip for the next round
//   Observe(Result) Feedback  - learn from a settled entry (bet or skipped)
//
// Each implementation owns its private state. Decide may move that state
// (cursors, mode flags) but never touches history; the reconciliation pass
// is the only writer of history.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Kind identifies a strategy
type Kind string

const (
	AIFrequency  Kind = "AI_FREQUENCY"
	LyzoPattern  Kind = "LYZO_PATTERN"
	DreamPattern Kind = "DREAM_PATTERN"
	BabioPos     Kind = "BABIO_POSITION"
	AlinkarRun   Kind = "ALINKAR_STREAK"
	MayBarani    Kind = "MAY_BARANI_ARITHMETIC"
	TrendFollow  Kind = "TREND_FOLLOW"
	Alternate    Kind = "ALTERNATE"
	BSOrder      Kind = "BS_ORDER"
	LeoPattern   Kind = "LEO_PATTERN"
	Dream2       Kind = "DREAM2_PATTERN"
	Sniper       Kind = "SNIPER"
	Beatrix      Kind = "BEATRIX"
)

// Kinds lists every strategy in display order
var Kinds = []Kind{
	AIFrequency, LyzoPattern, DreamPattern, BabioPos, AlinkarRun, MayBarani,
	TrendFollow, Alternate, BSOrder, LeoPattern, Dream2, Sniper, Beatrix,
}

var aliases = map[string]Kind{
	"AI":         AIFrequency,
	"LYZO":       LyzoPattern,
	"DREAM":      DreamPattern,
	"BABIO":      BabioPos,
	"ALINKAR":    AlinkarRun,
	"MAY_BARANI": MayBarani,
	"MAYBARANI":  MayBarani,
	"TREND":      TrendFollow,
	"ALT":        Alternate,
	"BSORDER":    BSOrder,
	"LEO":        LeoPattern,
	"DREAM2":     Dream2,
}

// ParseKind accepts the full kind name or its short alias
func ParseKind(v string) (Kind, error) {
	key := strings.ToUpper(strings.TrimSpace(v))
	for _, k := range Kinds {
		if string(k) == key {
			return k, nil
		}
	}
	if k, ok := aliases[key]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown strategy %q", v)
}

// UsesShortWindow reports whether the kind reads the dedicated 10-round
// buffer; all others read the shared 20-round buffer.
func (k Kind) UsesShortWindow() bool {
	switch k {
	case AIFrequency, LyzoPattern, BabioPos:
		return true
	}
	return false
}

// Input is what a strategy sees when asked for the next round
type Input struct {
	RoundID string       // round being decided
	History []types.Side // oldest first
	Digits  []int        // aligned with History
}

// Last returns the most recent classification
func (in Input) Last() (types.Side, bool) {
	if len(in.History) == 0 {
		return "", false
	}
	return in.History[len(in.History)-1], true
}

// Decision is a strategy's answer for one round
type Decision struct {
	Side       types.Side
	Skip       bool
	Confidence int // 0-100, only some strategies set it
	Reason     string
}

// Result is a settled entry fed back to the strategy that produced it
type Result struct {
	Settlement types.Settlement
	Bet        types.Side
	Win        bool
	Skipped    bool
}

// Feedback lets a strategy end the session on its own terms
type Feedback struct {
	Halt   bool
	Reason string
}

// Strategy is the interface all predictors implement
type Strategy interface {
	// Kind returns the strategy identifier
	Kind() Kind

	// Decide picks a side (or skip) for the next round
	Decide(in Input) Decision

	// Observe records the settlement of an entry this strategy produced
	Observe(r Result) Feedback
}

// RoundAdvancer is implemented by strategies that step once per recorded entry
type RoundAdvancer interface {
	Advance()
}

// GateBypasser is implemented by strategies that size their own bets and
// ignore the entry and stop-loss layers
type GateBypasser interface {
	BypassGates() bool
}

// Stake is implemented by strategies that choose their own bet size rung
type Stake interface {
	StakeIndex() int
}

// ═══════════════════════════════════════════════════════════════════════════════
// FACTORY
// ═══════════════════════════════════════════════════════════════════════════════

// Options carries per-user knobs plus the loaded pattern tables
type Options struct {
	WaitCount    int          // TREND_FOLLOW / ALTERNATE
	Order        []types.Side // BS_ORDER sequence, default if empty
	LadderLength int          // SNIPER validates this
	Patterns     *Patterns
}

// New builds a fresh strategy with zeroed state
func New(kind Kind, opts Options) (Strategy, error) {
	patterns := opts.Patterns
	if patterns == nil {
		patterns = DefaultPatterns()
	}

	switch kind {
	case AIFrequency:
		return &Frequency{}, nil
	case LyzoPattern:
		return NewLyzo(patterns.Lyzo), nil
	case DreamPattern:
		return NewDream(patterns.Dream), nil
	case BabioPos:
		return NewBabio(), nil
	case AlinkarRun:
		return &Alinkar{}, nil
	case MayBarani:
		return &Arithmetic{}, nil
	case TrendFollow:
		if opts.WaitCount < 0 {
			return nil, fmt.Errorf("%w: %d", ErrWaitCount, opts.WaitCount)
		}
		return NewTrend(opts.WaitCount), nil
	case Alternate:
		if opts.WaitCount < 0 {
			return nil, fmt.Errorf("%w: %d", ErrWaitCount, opts.WaitCount)
		}
		return NewAlternate(opts.WaitCount), nil
	case BSOrder:
		order := opts.Order
		if len(order) == 0 {
			order = DefaultOrder
		}
		return NewSequence(BSOrder, order), nil
	case LeoPattern:
		return &Leo{}, nil
	case Dream2:
		return NewSequence(Dream2, Dream2Pattern), nil
	case Sniper:
		if opts.LadderLength != SniperSteps {
			return nil, fmt.Errorf("%w: got %d sizes", ErrSniperLadder, opts.LadderLength)
		}
		return NewSniper(), nil
	case Beatrix:
		return NewBeatrix(), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", kind)
}
