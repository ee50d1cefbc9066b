package core

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/feeds"
	"github.com/web3guy0/bsbot/risk"
	"github.com/web3guy0/bsbot/strategy"
	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PROFILE - Per-user settings and history buffers
// ═══════════════════════════════════════════════════════════════════════════════
//
// A profile outlives sessions. It holds what the user configured, the
// platform the user logged into, and two history buffers:
//   short (10) - dedicated to AI_FREQUENCY / LYZO_PATTERN / BABIO_POSITION,
//                cleared on strategy change
//   long  (20) - shared by every other strategy
// Both are cleared on login.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Settings is what a user configures between sessions
type Settings struct {
	Game           types.GameKind
	Strategy       strategy.Kind
	Progression    risk.Kind
	Ladder         []decimal.Decimal
	EntryMode      risk.EntryMode
	StopLossLayer  int
	Target         decimal.Decimal
	StopLoss       decimal.Decimal
	Virtual        bool
	VirtualBalance decimal.Decimal
	WaitCount      int
	Order          []types.Side
}

// DefaultSettings is a fresh user's configuration
func DefaultSettings() Settings {
	return Settings{
		Game:        types.TRX,
		Strategy:    strategy.AIFrequency,
		Progression: risk.Martingale,
		Ladder:      []decimal.Decimal{decimal.NewFromInt(100)},
		EntryMode:   risk.EntryAlways,
	}
}

// Clone deep-copies slices so callers can't alias profile state
func (s Settings) Clone() Settings {
	s.Ladder = append([]decimal.Decimal(nil), s.Ladder...)
	s.Order = append([]types.Side(nil), s.Order...)
	return s
}

// RiskConfig derives the risk setup. SNIPER sizes itself from the ladder and
// ignores both gating layers.
func (s Settings) RiskConfig() risk.Config {
	cfg := risk.Config{
		Progression:    s.Progression,
		Ladder:         s.Ladder,
		EntryMode:      s.EntryMode,
		StopLossLayer:  s.StopLossLayer,
		Thresholds:     risk.Thresholds{Target: s.Target, StopLoss: s.StopLoss},
		Virtual:        s.Virtual,
		VirtualBalance: s.VirtualBalance,
	}
	if s.Strategy == strategy.Sniper {
		cfg.EntryMode = risk.EntryAlways
		cfg.StopLossLayer = 0
	}
	return cfg
}

// StrategyOptions derives the factory options
func (s Settings) StrategyOptions(patterns *strategy.Patterns) strategy.Options {
	return strategy.Options{
		WaitCount:    s.WaitCount,
		Order:        s.Order,
		LadderLength: len(s.Ladder),
		Patterns:     patterns,
	}
}

// Validate runs every configuration check a session start would run
func (s Settings) Validate(patterns *strategy.Patterns) error {
	if _, ok := LookupGame(s.Game); !ok {
		return fmt.Errorf("unknown game %q", s.Game)
	}
	if err := s.RiskConfig().Validate(); err != nil {
		return err
	}
	_, err := strategy.New(s.Strategy, s.StrategyOptions(patterns))
	return err
}

// Profile is one user's durable state
type Profile struct {
	mu sync.RWMutex

	UserID   int64
	settings Settings
	platform types.Platform
	account  string

	short *feeds.History
	long  *feeds.History
}

// NewProfile creates a profile with default settings
func NewProfile(userID int64) *Profile {
	return &Profile{
		UserID:   userID,
		settings: DefaultSettings(),
		short:    feeds.NewHistory(feeds.ShortWindow),
		long:     feeds.NewHistory(feeds.LongWindow),
	}
}

// Settings returns a copy of the current settings
func (p *Profile) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.Clone()
}

// Update applies fn to a copy and stores it if fn succeeds. A strategy
// change clears the dedicated buffer.
func (p *Profile) Update(fn func(*Settings) error) (Settings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.settings.Clone()
	if err := fn(&next); err != nil {
		return p.settings.Clone(), err
	}
	if next.Strategy != p.settings.Strategy {
		p.short.Reset()
	}
	p.settings = next
	return next.Clone(), nil
}

// Bind attaches a logged-in platform and clears both buffers
func (p *Profile) Bind(platform types.Platform, account string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.platform = platform
	p.account = account
	p.short.Reset()
	p.long.Reset()
}

// Platform returns the bound platform, nil before login
func (p *Profile) Platform() types.Platform {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.platform
}

// Account returns the logged-in account name
func (p *Profile) Account() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.account
}

// HistoryFor returns the buffer the given strategy reads
func (p *Profile) HistoryFor(kind strategy.Kind) *feeds.History {
	if kind.UsesShortWindow() {
		return p.short
	}
	return p.long
}

// Record appends a settlement batch to both buffers. Returns the number of
// rounds new to the long buffer.
func (p *Profile) Record(batch []types.Settlement) int {
	p.short.AppendBatch(batch)
	return p.long.AppendBatch(batch)
}
