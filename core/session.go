package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/execution"
	"github.com/web3guy0/bsbot/risk"
	"github.com/web3guy0/bsbot/strategy"
	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SESSION - One user's decision loop and settlement bookkeeping
// ═══════════════════════════════════════════════════════════════════════════════
//
// Decision loop (own goroutine, every PollInterval):
//   open round → unchanged? idle
//             → strategy skip → entry layer → stop-loss layer
//             → skip: record SkippedEntry
//             → bet:  size (progression or strategy stake) → Executor → PendingEntry
//
// Reconcile (called by the shared Reconciler):
//   history ← batch, then each outstanding entry whose round settled:
//   PendingEntry → progression, gates, strategy, ledger, thresholds
//   SkippedEntry → entry layer, stop-loss release, strategy (no money)
//
// The waiting flag is set while any entry is outstanding or a bet is being
// submitted. No new round is decided until it clears.
//
// ═══════════════════════════════════════════════════════════════════════════════

// SessionConfig holds loop bounds shared by every session
type SessionConfig struct {
	PollInterval         time.Duration
	MaxConsecutiveErrors int
	SkipTimeout          time.Duration // SkippedEntry abandoned after this
	PendingTimeout       time.Duration // 0 keeps PendingEntry until stop
	LowBalanceFactor     int64         // warn below factor × ladder minimum
}

// DefaultSessionConfig returns sensible defaults
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PollInterval:         time.Second,
		MaxConsecutiveErrors: 10,
		SkipTimeout:          60 * time.Second,
		PendingTimeout:       0,
		LowBalanceFactor:     3,
	}
}

// Halt reasons that are not thresholds
const (
	HaltStopped      = "stopped by user"
	HaltShutdown     = "shutdown"
	HaltInsufficient = "insufficient balance"
	HaltPlatform     = "platform unreachable"
	HaltBetFailed    = "bet placement failed"
)

// Session is one running (or finished) session
type Session struct {
	mu sync.Mutex

	id       string
	userID   int64
	profile  *Profile
	settings Settings
	platform types.Platform
	strat    strategy.Strategy
	bypass   bool
	risk     *risk.Manager
	executor *execution.Executor
	notifier types.Notifier
	cfg      SessionConfig

	pending map[string]*types.PendingEntry
	skipped map[string]*types.SkippedEntry
	placing bool
	waiting bool
	running bool

	lastRound    string
	errors       int
	startBalance decimal.Decimal
	wins         int
	losses       int
	skips        int
	startedAt    time.Time
	stoppedAt    time.Time
	haltReason   string

	stopCh chan struct{}
	doneCh chan struct{}
	now    func() time.Time
}

type sessionParams struct {
	userID       int64
	profile      *Profile
	settings     Settings
	platform     types.Platform
	strat        strategy.Strategy
	risk         *risk.Manager
	executor     *execution.Executor
	notifier     types.Notifier
	cfg          SessionConfig
	startBalance decimal.Decimal
	now          func() time.Time
}

func newSession(p sessionParams) *Session {
	if p.now == nil {
		p.now = time.Now
	}
	bypass := false
	if b, ok := p.strat.(strategy.GateBypasser); ok {
		bypass = b.BypassGates()
	}
	return &Session{
		id:           uuid.NewString(),
		userID:       p.userID,
		profile:      p.profile,
		settings:     p.settings,
		platform:     p.platform,
		strat:        p.strat,
		bypass:       bypass,
		risk:         p.risk,
		executor:     p.executor,
		notifier:     p.notifier,
		cfg:          p.cfg,
		pending:      make(map[string]*types.PendingEntry),
		skipped:      make(map[string]*types.SkippedEntry),
		running:      true,
		startBalance: p.startBalance,
		startedAt:    p.now(),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		now:          p.now,
	}
}

// ID is the session's unique id
func (s *Session) ID() string { return s.id }

// UserID implements execution.Target
func (s *Session) UserID() int64 { return s.userID }

// Game implements execution.Target
func (s *Session) Game() types.GameKind { return s.settings.Game }

// Platform implements execution.Target
func (s *Session) Platform() types.Platform { return s.platform }

// Running reports whether the session is live
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed once the decision loop has exited
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// ═══════════════════════════════════════════════════════════════════════════════
// DECISION LOOP
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Session) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.emit(s.Step(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.emit(s.Step(ctx))
		}
	}
}

func (s *Session) emit(events []types.Event) {
	if s.notifier == nil {
		return
	}
	for _, ev := range events {
		s.notifier.Notify(ev)
	}
}

// Step runs one decision loop iteration and returns the events it produced
func (s *Session) Step(ctx context.Context) []types.Event {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	var events []types.Event
	s.expireLocked(s.now())
	if s.waiting {
		s.mu.Unlock()
		return events
	}
	s.mu.Unlock()

	round, err := s.platform.OpenRound(ctx, s.settings.Game)
	if err != nil {
		return append(events, s.failure("open round", err)...)
	}

	s.mu.Lock()
	if !s.running || s.waiting {
		s.mu.Unlock()
		return events
	}
	s.errors = 0
	if round == s.lastRound {
		s.mu.Unlock()
		return events
	}
	s.lastRound = round

	decision, gate := s.decideLocked(round)
	if decision.Skip || gate != "" {
		events = append(events, s.recordSkipLocked(round, decision, gate))
		s.mu.Unlock()
		return events
	}

	// reserve the round while the bet is in flight
	s.placing = true
	s.waiting = true
	s.mu.Unlock()

	return append(events, s.placeBet(ctx, round, decision)...)
}

func (s *Session) decideLocked(round string) (strategy.Decision, string) {
	settled := s.profile.HistoryFor(s.strat.Kind()).Settlements()
	in := strategy.Input{
		RoundID: round,
		History: make([]types.Side, len(settled)),
		Digits:  make([]int, len(settled)),
	}
	for i, st := range settled {
		in.History[i] = st.Side()
		in.Digits[i] = st.Digit
	}

	decision := s.strat.Decide(in)
	if decision.Skip || s.bypass {
		return decision, ""
	}
	return decision, s.risk.Gate()
}

func (s *Session) recordSkipLocked(round string, d strategy.Decision, gate string) types.Event {
	side := d.Side
	if !side.Valid() {
		side = types.Big
	}
	s.skipped[round] = &types.SkippedEntry{
		RoundID:    round,
		Side:       side,
		Virtual:    s.settings.Virtual,
		RecordedAt: s.now(),
	}
	s.skips++
	s.advanceLocked()
	s.waiting = true

	reason := d.Reason
	if gate != "" {
		reason = gate
	}
	log.Info().
		Int64("user", s.userID).
		Str("round", round).
		Str("side", side.Label()).
		Str("reason", reason).
		Msg("⏭️ Entry skipped")

	ev := s.eventLocked(types.EventSkipRecorded)
	ev.RoundID = round
	ev.Side = side
	ev.Amount = decimal.Zero
	ev.Skipped = true
	ev.Reason = reason
	return ev
}

func (s *Session) advanceLocked() {
	if a, ok := s.strat.(strategy.RoundAdvancer); ok {
		a.Advance()
	}
}

func (s *Session) placeBet(ctx context.Context, round string, d strategy.Decision) []types.Event {
	balance, err := s.balance(ctx)
	if err != nil {
		s.mu.Lock()
		s.placing = false
		s.refreshWaitingLocked()
		s.lastRound = "" // retry this round next tick
		s.mu.Unlock()
		return s.failure("balance", err)
	}

	s.mu.Lock()
	if !s.running {
		s.placing = false
		s.refreshWaitingLocked()
		s.mu.Unlock()
		return nil
	}
	amount := s.stakeLocked(balance)
	if balance.LessThan(amount) {
		s.placing = false
		events := s.haltLocked(HaltInsufficient, "")
		s.mu.Unlock()
		log.Warn().
			Int64("user", s.userID).
			Str("balance", balance.String()).
			Str("needed", amount.String()).
			Msg("💸 Insufficient balance, session halted")
		return events
	}
	if low := s.risk.Progression.Min().Mul(decimal.NewFromInt(s.cfg.LowBalanceFactor)); balance.LessThan(low) {
		log.Warn().
			Int64("user", s.userID).
			Str("balance", balance.String()).
			Str("warn_below", low.String()).
			Msg("⚠️ Balance running low")
	}
	s.mu.Unlock()

	entry, state, err := s.executor.Place(ctx, s.platform, execution.Request{
		Game:    s.settings.Game,
		RoundID: round,
		Side:    d.Side,
		Amount:  amount,
		Virtual: s.settings.Virtual,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.placing = false

	if err != nil {
		s.refreshWaitingLocked()
		log.Error().Err(err).Int64("user", s.userID).Str("round", round).Msg("❌ Bet failed")
		return s.haltLocked(fmt.Sprintf("%s: %v", HaltBetFailed, err), "")
	}
	if !s.running {
		log.Warn().Int64("user", s.userID).Str("round", round).Msg("Bet landed after stop, not tracked")
		s.refreshWaitingLocked()
		return nil
	}

	s.pending[round] = &entry
	s.advanceLocked()
	s.refreshWaitingLocked()

	after := balance.Sub(entry.Amount)
	log.Info().
		Int64("user", s.userID).
		Str("round", round).
		Str("side", d.Side.Label()).
		Str("amount", entry.Amount.String()).
		Str("state", string(state)).
		Str("reason", d.Reason).
		Msg("🎯 Bet placed")

	ev := s.eventLocked(types.EventBetPlaced)
	ev.RoundID = round
	ev.Side = d.Side
	ev.Amount = entry.Amount
	ev.Balance = after
	ev.Reason = d.Reason
	return []types.Event{ev}
}

func (s *Session) balance(ctx context.Context) (decimal.Decimal, error) {
	if s.settings.Virtual {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.risk.Ledger.Balance(), nil
	}
	return s.platform.Balance(ctx)
}

// stakeLocked picks the bet size: strategy-owned rung, else the progression
func (s *Session) stakeLocked(balance decimal.Decimal) decimal.Decimal {
	if st, ok := s.strat.(strategy.Stake); ok {
		return s.risk.Progression.Rung(st.StakeIndex())
	}
	return s.risk.Progression.NextAmount(balance)
}

// failure counts a platform error and halts past the bound
func (s *Session) failure(op string, err error) []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.errors++
	log.Warn().
		Err(err).
		Int64("user", s.userID).
		Str("op", op).
		Int("consecutive", s.errors).
		Int("max", s.cfg.MaxConsecutiveErrors).
		Msg("⚠️ Platform error")
	if s.errors >= s.cfg.MaxConsecutiveErrors {
		return s.haltLocked(fmt.Sprintf("%s after %d errors: %v", HaltPlatform, s.errors, err), "")
	}
	return nil
}

// FetchFailed implements execution.Target
func (s *Session) FetchFailed(err error) []types.Event {
	return s.failure("settlements", err)
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECONCILIATION
// ═══════════════════════════════════════════════════════════════════════════════

// Reconcile implements execution.Target. batch is most recent first and may
// be short or stale.
func (s *Session) Reconcile(batch []types.Settlement, now time.Time) []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.errors = 0
	s.profile.Record(batch)

	var events []types.Event
	for i := len(batch) - 1; i >= 0 && s.running; i-- {
		st := batch[i]
		if e, ok := s.pending[st.RoundID]; ok {
			delete(s.pending, st.RoundID)
			events = append(events, s.settleBetLocked(e, st)...)
			continue
		}
		if e, ok := s.skipped[st.RoundID]; ok {
			delete(s.skipped, st.RoundID)
			events = append(events, s.settleSkipLocked(e, st)...)
		}
	}

	if s.running {
		s.expireLocked(now)
	}
	s.refreshWaitingLocked()
	return events
}

func (s *Session) settleBetLocked(e *types.PendingEntry, st types.Settlement) []types.Event {
	win := st.Side() == e.Side
	delta := s.risk.SettleBet(win, e.Requested, e.Amount)
	fb := s.strat.Observe(strategy.Result{Settlement: st, Bet: e.Side, Win: win})

	kind := types.EventRoundLost
	if win {
		s.wins++
		kind = types.EventRoundWon
	} else {
		s.losses++
	}

	log.Info().
		Int64("user", s.userID).
		Str("round", st.RoundID).
		Int("digit", st.Digit).
		Str("bet", e.Side.Label()).
		Bool("win", win).
		Str("pnl", delta.String()).
		Str("profit", s.risk.Ledger.Profit().String()).
		Msg(resultEmoji(win) + " Round settled")

	ev := s.eventLocked(kind)
	ev.RoundID = st.RoundID
	ev.Side = e.Side
	ev.Amount = e.Amount
	ev.Digit = st.Digit
	ev.Result = st.Side()
	ev.Win = win
	ev.Virtual = e.Virtual
	events := []types.Event{ev}

	if reason := s.risk.Check(!s.bypass); reason != risk.NoStop {
		th := s.eventLocked(types.EventThresholdReached)
		th.Threshold = string(reason)
		th.RoundID = st.RoundID
		events = append(events, th)
		return append(events, s.haltLocked(string(reason), string(reason))...)
	}
	if fb.Halt {
		return append(events, s.haltLocked(fb.Reason, "")...)
	}
	return events
}

func (s *Session) settleSkipLocked(e *types.SkippedEntry, st types.Settlement) []types.Event {
	win := st.Side() == e.Side
	released := false
	if !s.bypass {
		released = s.risk.SettleSkip(win)
	}
	fb := s.strat.Observe(strategy.Result{Settlement: st, Bet: e.Side, Win: win, Skipped: true})

	kind := types.EventRoundLost
	if win {
		kind = types.EventRoundWon
	}
	ev := s.eventLocked(kind)
	ev.RoundID = st.RoundID
	ev.Side = e.Side
	ev.Amount = decimal.Zero
	ev.Digit = st.Digit
	ev.Result = st.Side()
	ev.Win = win
	ev.Skipped = true
	ev.Virtual = e.Virtual
	if released {
		ev.Reason = "stop-loss layer released"
		log.Info().
			Int64("user", s.userID).
			Int("index", s.risk.Progression.Index()).
			Msg("🔓 Stop-loss layer released, progression restored")
	}
	events := []types.Event{ev}

	if fb.Halt {
		return append(events, s.haltLocked(fb.Reason, "")...)
	}
	return events
}

// expireLocked abandons entries whose round never showed up
func (s *Session) expireLocked(now time.Time) {
	if s.cfg.SkipTimeout > 0 {
		for id, e := range s.skipped {
			if now.Sub(e.RecordedAt) >= s.cfg.SkipTimeout {
				delete(s.skipped, id)
				log.Warn().Int64("user", s.userID).Str("round", id).Msg("⌛ Skipped entry abandoned, no settlement")
			}
		}
	}
	if s.cfg.PendingTimeout > 0 {
		for id, e := range s.pending {
			if now.Sub(e.PlacedAt) >= s.cfg.PendingTimeout {
				delete(s.pending, id)
				log.Warn().Int64("user", s.userID).Str("round", id).Msg("⌛ Pending bet abandoned, no settlement")
			}
		}
	}
	s.refreshWaitingLocked()
}

func (s *Session) refreshWaitingLocked() {
	s.waiting = s.placing || len(s.pending) > 0 || len(s.skipped) > 0
}

// ═══════════════════════════════════════════════════════════════════════════════
// HALT & STATUS
// ═══════════════════════════════════════════════════════════════════════════════

// Stop halts the session. Returns the SESSION_HALTED event, or nil if it was
// already stopped.
func (s *Session) Stop(reason string) []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haltLocked(reason, "")
}

func (s *Session) haltLocked(reason, threshold string) []types.Event {
	if !s.running {
		return nil
	}
	s.running = false
	s.stoppedAt = s.now()
	s.haltReason = reason
	close(s.stopCh)

	abandoned := len(s.pending) + len(s.skipped)
	s.pending = make(map[string]*types.PendingEntry)
	s.skipped = make(map[string]*types.SkippedEntry)
	s.placing = false
	s.waiting = false

	summary := s.summaryLocked()
	log.Info().
		Int64("user", s.userID).
		Str("session", s.id).
		Str("reason", reason).
		Int("wins", summary.Wins).
		Int("losses", summary.Losses).
		Int("abandoned", abandoned).
		Str("profit", summary.Profit.String()).
		Msg("🛑 Session halted")

	ev := s.eventLocked(types.EventSessionHalted)
	ev.Reason = reason
	ev.Threshold = threshold
	ev.Summary = &summary
	return []types.Event{ev}
}

func (s *Session) summaryLocked() types.SessionSummary {
	return types.SessionSummary{
		Strategy:          string(s.strat.Kind()),
		Progression:       string(s.risk.Progression.Kind()),
		ProgressionIndex:  s.risk.Progression.Index(),
		ProgressionUnits:  s.risk.Progression.Units(),
		ConsecutiveLosses: s.risk.StopLoss.ConsecutiveLosses(),
		SkipUntilWin:      s.risk.StopLoss.Blocking(),
		Wins:              s.wins,
		Losses:            s.losses,
		Skips:             s.skips,
		Profit:            s.risk.Ledger.Profit(),
		Balance:           s.balanceLocked(),
		Virtual:           s.settings.Virtual,
		StartedAt:         s.startedAt,
		StoppedAt:         s.stoppedAt,
	}
}

// balanceLocked is the virtual balance, or the real start balance plus profit
func (s *Session) balanceLocked() decimal.Decimal {
	if s.settings.Virtual {
		return s.risk.Ledger.Balance()
	}
	return s.startBalance.Add(s.risk.Ledger.Profit())
}

func (s *Session) eventLocked(kind types.EventKind) types.Event {
	return types.Event{
		Kind:      kind,
		UserID:    s.userID,
		SessionID: s.id,
		Game:      s.settings.Game,
		Strategy:  string(s.strat.Kind()),
		Virtual:   s.settings.Virtual,
		Balance:   s.balanceLocked(),
		Profit:    s.risk.Ledger.Profit(),
		At:        s.now(),
	}
}

// Status is a point-in-time view of a session
type Status struct {
	SessionID  string
	UserID     int64
	Game       types.GameKind
	Running    bool
	Waiting    bool
	LastRound  string
	Pending    int
	Skipped    int
	Gate       string
	HaltReason string
	Summary    types.SessionSummary
}

// Status snapshots the session
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := ""
	if !s.bypass {
		gate = s.risk.Gate()
	}
	return Status{
		SessionID:  s.id,
		UserID:     s.userID,
		Game:       s.settings.Game,
		Running:    s.running,
		Waiting:    s.waiting,
		LastRound:  s.lastRound,
		Pending:    len(s.pending),
		Skipped:    len(s.skipped),
		Gate:       gate,
		HaltReason: s.haltReason,
		Summary:    s.summaryLocked(),
	}
}

func resultEmoji(win bool) string {
	if win {
		return "✅"
	}
	return "❌"
}
