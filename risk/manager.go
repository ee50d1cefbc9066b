package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RISK MANAGER - One session's sizing, gating and P&L
// ═══════════════════════════════════════════════════════════════════════════════
//
// Responsibilities:
// 1. Size the next bet (progression)
// 2. Gate entries (entry layer, then stop-loss layer)
// 3. Book settled bets (ledger) and check thresholds
//
// Not safe for concurrent use; the owning session serializes access.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Config is the user-facing risk setup for one session
type Config struct {
	Progression    Kind
	Ladder         []decimal.Decimal
	EntryMode      EntryMode
	StopLossLayer  int
	Thresholds     Thresholds
	Virtual        bool
	VirtualBalance decimal.Decimal
}

// Validate rejects configurations before any bet is attempted
func (c Config) Validate() error {
	if err := ValidateLadder(c.Progression, c.Ladder); err != nil {
		return err
	}
	if !c.EntryMode.Valid() {
		return fmt.Errorf("%w: %d", ErrEntryMode, c.EntryMode)
	}
	if c.StopLossLayer < 0 {
		return fmt.Errorf("stop-loss layer must not be negative: %d", c.StopLossLayer)
	}
	if c.Thresholds.Target.IsNegative() || c.Thresholds.StopLoss.IsNegative() {
		return fmt.Errorf("thresholds are magnitudes and must not be negative")
	}
	if c.Virtual && !c.VirtualBalance.IsPositive() {
		return fmt.Errorf("virtual balance must be positive")
	}
	return nil
}

// Manager bundles the per-session risk state
type Manager struct {
	Progression *Progression
	Entry       *EntryGate
	StopLoss    *StopLossGate
	Ledger      *Ledger
	Thresholds  Thresholds
}

// NewManager builds fresh state from cfg. startBalance seeds real ledgers;
// virtual ledgers start from cfg.VirtualBalance.
func NewManager(cfg Config, startBalance decimal.Decimal) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prog, err := NewProgression(cfg.Progression, cfg.Ladder)
	if err != nil {
		return nil, err
	}
	entry, err := NewEntryGate(cfg.EntryMode)
	if err != nil {
		return nil, err
	}
	if cfg.Virtual {
		startBalance = cfg.VirtualBalance
	}
	return &Manager{
		Progression: prog,
		Entry:       entry,
		StopLoss:    NewStopLossGate(cfg.StopLossLayer),
		Ledger:      NewLedger(cfg.Virtual, startBalance),
		Thresholds:  cfg.Thresholds,
	}, nil
}

// Gate runs entry layer then stop-loss layer. Returns the blocking layer
// name, or "" if the entry may be wagered.
func (m *Manager) Gate() string {
	if m.Entry.Blocking() {
		return "entry layer"
	}
	if m.StopLoss.Blocking() {
		return "stop-loss layer"
	}
	return ""
}

// SettleBet books a wagered result: progression, gates, then ledger.
// Returns the signed profit change.
func (m *Manager) SettleBet(win bool, requested, amount decimal.Decimal) decimal.Decimal {
	m.Progression.Advance(win, requested)
	m.Entry.Record(win)
	m.StopLoss.RecordReal(win, m.Progression)
	return m.Ledger.Record(win, amount)
}

// SettleSkip books a skipped result. Only the entry layer observes it, plus
// the stop-loss layer's release-on-win. Returns true if the stop-loss layer
// released.
func (m *Manager) SettleSkip(win bool) bool {
	m.Entry.Record(win)
	return m.StopLoss.RecordSkipped(win, m.Progression)
}

// Check evaluates thresholds against the ledger
func (m *Manager) Check(includeTarget bool) StopReason {
	return m.Thresholds.Evaluate(m.Ledger.Profit(), includeTarget)
}
