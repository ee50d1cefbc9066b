package risk

import (
	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STOP-LOSS LAYER - Sit out a losing streak on paper
// ═══════════════════════════════════════════════════════════════════════════════
//
// After N consecutive real losses the progression is snapshotted and every
// entry becomes a skip. The first skipped entry that would have won restores
// the snapshot and re-arms real betting. Skipped entries never move the
// counter.
//
// ═══════════════════════════════════════════════════════════════════════════════

// StopLossGate is the consecutive-loss circuit breaker. Threshold 0 disables it.
type StopLossGate struct {
	threshold int
	losses    int
	tripped   bool
	snapshot  ProgressionSnapshot
}

func NewStopLossGate(threshold int) *StopLossGate {
	if threshold < 0 {
		threshold = 0
	}
	return &StopLossGate{threshold: threshold}
}

func (g *StopLossGate) Enabled() bool          { return g.threshold > 0 }
func (g *StopLossGate) Threshold() int         { return g.threshold }
func (g *StopLossGate) ConsecutiveLosses() int { return g.losses }

// Blocking reports whether entries are being skipped until a win
func (g *StopLossGate) Blocking() bool { return g.tripped }

// RecordReal feeds a wagered result. Call after the progression has
// advanced. Returns true when this loss trips the breaker.
func (g *StopLossGate) RecordReal(win bool, p *Progression) bool {
	if !g.Enabled() {
		return false
	}
	if win {
		g.losses = 0
		return false
	}

	g.losses++
	if g.losses < g.threshold || g.tripped {
		return false
	}

	g.tripped = true
	g.snapshot = p.Snapshot()
	log.Warn().
		Int("losses", g.losses).
		Int("index", g.snapshot.Index).
		Int("units", g.snapshot.Units).
		Msg("🛑 Stop-loss layer tripped, skipping until a win")
	return true
}

// RecordSkipped feeds a skipped result. A would-be win while tripped restores
// the snapshot and returns true.
func (g *StopLossGate) RecordSkipped(win bool, p *Progression) bool {
	if !g.tripped || !win {
		return false
	}
	g.tripped = false
	g.losses = 0
	p.Restore(g.snapshot)
	log.Info().
		Int("index", g.snapshot.Index).
		Int("units", g.snapshot.Units).
		Msg("✅ Stop-loss layer cleared, progression restored")
	return true
}

// Reset clears the counter and the trip
func (g *StopLossGate) Reset() {
	g.losses = 0
	g.tripped = false
	g.snapshot = ProgressionSnapshot{}
}
