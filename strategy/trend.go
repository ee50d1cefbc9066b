package strategy

import (
	"strings"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TREND STRATEGIES - follow or fade the previous outcome, with a chop filter
// ═══════════════════════════════════════════════════════════════════════════════
//
// With wait count N > 0 the strategy sits out whenever the last 2N outcomes
// form one of its two blocking patterns, and stays out until a skipped
// entry would have won.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Trend serves TREND_FOLLOW and ALTERNATE
type Trend struct {
	kind     Kind
	wait     int
	opposite bool
	blocking [2]string

	last     types.Side
	skipMode bool
}

// NewTrend bets the previous outcome, pausing on "BS"/"SB" chop
func NewTrend(wait int) *Trend {
	return &Trend{
		kind:     TrendFollow,
		wait:     wait,
		blocking: [2]string{strings.Repeat("BS", wait), strings.Repeat("SB", wait)},
	}
}

// NewAlternate bets against the previous outcome, pausing on "BB"/"SS" runs
func NewAlternate(wait int) *Trend {
	return &Trend{
		kind:     Alternate,
		wait:     wait,
		opposite: true,
		blocking: [2]string{strings.Repeat("BB", wait), strings.Repeat("SS", wait)},
	}
}

func (t *Trend) Kind() Kind { return t.kind }

func (t *Trend) side() types.Side {
	if t.last == "" {
		return types.Big
	}
	if t.opposite {
		return t.last.Opposite()
	}
	return t.last
}

func (t *Trend) Decide(in Input) Decision {
	side := t.side()

	if t.skipMode {
		return Decision{Side: side, Skip: true, Reason: "waiting for a win"}
	}

	if t.wait > 0 && len(in.History) >= 2*t.wait {
		recent := types.SequenceString(tail(in.History, 2*t.wait))
		if recent == t.blocking[0] || recent == t.blocking[1] {
			t.skipMode = true
			return Decision{Side: side, Skip: true, Reason: "pattern " + recent}
		}
	}

	reason := "follow last"
	if t.opposite {
		reason = "opposite of last"
	}
	if t.last == "" {
		reason = "first bet"
	}
	return Decision{Side: side, Reason: reason}
}

func (t *Trend) Observe(r Result) Feedback {
	if t.skipMode && r.Skipped && r.Win {
		t.skipMode = false
	}
	t.last = r.Settlement.Side()
	return Feedback{}
}

// SkipMode reports whether the chop filter is holding
func (t *Trend) SkipMode() bool { return t.skipMode }
