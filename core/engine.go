package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/execution"
	"github.com/web3guy0/bsbot/risk"
	"github.com/web3guy0/bsbot/strategy"
	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE - Central orchestrator
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow:
//   Login → Configure → Start → (Decision Loop ⇄ Reconciler) → Stop / Halt
//
// The engine owns the per-user registry. Each started session runs its own
// decision loop; the shared execution.Reconciler reads sessions through
// Targets.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	ErrNotLoggedIn    = errors.New("log in before starting")
	ErrAlreadyRunning = errors.New("session already running")
	ErrNotRunning     = errors.New("no running session")
	ErrStartBalance   = errors.New("balance below smallest bet size")
)

// Config holds engine settings
type Config struct {
	Session          SessionConfig
	Executor         execution.ExecutorConfig
	BalanceAttempts  int           // start-up balance fetch attempts (default: 10)
	BalanceRetryWait time.Duration // wait between them (default: 5s)
	Patterns         *strategy.Patterns
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Session:          DefaultSessionConfig(),
		Executor:         execution.DefaultExecutorConfig(),
		BalanceAttempts:  10,
		BalanceRetryWait: 5 * time.Second,
		Patterns:         strategy.DefaultPatterns(),
	}
}

type Engine struct {
	mu       sync.Mutex
	starting map[int64]bool // users inside Start, guarded by mu

	cfg      Config
	router   *Router
	executor *execution.Executor

	subMu     sync.RWMutex
	notifiers types.Notifiers

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewEngine creates an engine. notifier receives decision loop events and
// the SESSION_HALTED events from Stop/Shutdown; nil is allowed.
func NewEngine(cfg Config, notifier types.Notifier) *Engine {
	def := DefaultConfig()
	if cfg.Session.PollInterval <= 0 {
		cfg.Session.PollInterval = def.Session.PollInterval
	}
	if cfg.Session.MaxConsecutiveErrors <= 0 {
		cfg.Session.MaxConsecutiveErrors = def.Session.MaxConsecutiveErrors
	}
	if cfg.Session.LowBalanceFactor <= 0 {
		cfg.Session.LowBalanceFactor = def.Session.LowBalanceFactor
	}
	if cfg.BalanceAttempts <= 0 {
		cfg.BalanceAttempts = def.BalanceAttempts
	}
	if cfg.BalanceRetryWait < 0 {
		cfg.BalanceRetryWait = def.BalanceRetryWait
	}
	if cfg.Patterns == nil {
		cfg.Patterns = def.Patterns
	}

	ctx, cancel := context.WithCancel(context.Background())
	var notifiers types.Notifiers
	if notifier != nil {
		notifiers = append(notifiers, notifier)
	}
	return &Engine{
		starting:  make(map[int64]bool),
		cfg:       cfg,
		router:    NewRouter(),
		executor:  execution.NewExecutor(cfg.Executor),
		notifiers: notifiers,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Subscribe adds a sink for every later event
func (e *Engine) Subscribe(n types.Notifier) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.notifiers = append(e.notifiers, n)
}

// Notify fans an event out to the subscribed sinks
func (e *Engine) Notify(ev types.Event) {
	e.subMu.RLock()
	sinks := e.notifiers
	e.subMu.RUnlock()
	sinks.Notify(ev)
}

func (e *Engine) notify(events []types.Event) {
	for _, ev := range events {
		e.Notify(ev)
	}
}

func (e *Engine) running(userID int64) bool {
	s, ok := e.router.Session(userID)
	return ok && s.Running()
}

// busy reports a running or starting session. Caller holds mu.
func (e *Engine) busy(userID int64) bool {
	return e.starting[userID] || e.running(userID)
}

// Login binds a logged-in platform to the user and clears their history
func (e *Engine) Login(userID int64, platform types.Platform, account string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy(userID) {
		return ErrAlreadyRunning
	}
	e.router.Profile(userID).Bind(platform, account)
	log.Info().Int64("user", userID).Msg("🔗 Platform bound")
	return nil
}

// Account returns the account name the user logged in with
func (e *Engine) Account(userID int64) string {
	return e.router.Profile(userID).Account()
}

// Settings returns a copy of the user's configuration
func (e *Engine) Settings(userID int64) Settings {
	return e.router.Profile(userID).Settings()
}

// Configure edits the user's settings. Changes are refused while a session
// runs; full validation happens at Start.
func (e *Engine) Configure(userID int64, fn func(*Settings) error) (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.router.Profile(userID)
	if e.busy(userID) {
		return p.Settings(), ErrAlreadyRunning
	}
	return p.Update(fn)
}

// Start validates the configuration and launches a fresh session. The
// balance fetch runs outside mu; other users are never held up by it.
func (e *Engine) Start(ctx context.Context, userID int64) (Status, error) {
	e.mu.Lock()
	if e.busy(userID) {
		e.mu.Unlock()
		return Status{}, ErrAlreadyRunning
	}
	e.starting[userID] = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.starting, userID)
		e.mu.Unlock()
	}()

	s, err := e.prepare(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	e.mu.Lock()
	if e.running(userID) {
		e.mu.Unlock()
		return Status{}, ErrAlreadyRunning
	}
	e.router.Put(s)
	go s.run(e.ctx)
	e.mu.Unlock()

	log.Info().
		Int64("user", userID).
		Str("session", s.id).
		Str("game", string(s.settings.Game)).
		Str("strategy", string(s.settings.Strategy)).
		Str("progression", string(s.settings.Progression)).
		Str("ladder", risk.LadderString(s.settings.Ladder)).
		Bool("virtual", s.settings.Virtual).
		Str("balance", s.startBalance.String()).
		Msg("🚀 Session started")

	return s.Status(), nil
}

// prepare builds a session without launching its decision loop
func (e *Engine) prepare(ctx context.Context, userID int64) (*Session, error) {
	profile := e.router.Profile(userID)
	platform := profile.Platform()
	if platform == nil {
		return nil, ErrNotLoggedIn
	}

	settings := profile.Settings()
	if err := settings.Validate(e.cfg.Patterns); err != nil {
		return nil, err
	}
	strat, err := strategy.New(settings.Strategy, settings.StrategyOptions(e.cfg.Patterns))
	if err != nil {
		return nil, err
	}

	startBalance := settings.VirtualBalance
	if !settings.Virtual {
		startBalance, err = e.fetchBalance(ctx, platform)
		if err != nil {
			return nil, err
		}
		if floor := minStake(settings.Ladder); startBalance.LessThan(floor) {
			return nil, fmt.Errorf("%w: %s < %s", ErrStartBalance, startBalance, floor)
		}
	}

	manager, err := risk.NewManager(settings.RiskConfig(), startBalance)
	if err != nil {
		return nil, err
	}

	return newSession(sessionParams{
		userID:       userID,
		profile:      profile,
		settings:     settings,
		platform:     platform,
		strat:        strat,
		risk:         manager,
		executor:     e.executor,
		notifier:     e,
		cfg:          e.cfg.Session,
		startBalance: startBalance,
		now:          e.now,
	}), nil
}

func minStake(ladder []decimal.Decimal) decimal.Decimal {
	if len(ladder) == 0 {
		return decimal.Zero
	}
	m := ladder[0]
	for _, amt := range ladder[1:] {
		if amt.LessThan(m) {
			m = amt
		}
	}
	return m
}

func (e *Engine) fetchBalance(ctx context.Context, p types.Platform) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.BalanceAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			case <-time.After(e.cfg.BalanceRetryWait):
			}
		}
		bal, err := p.Balance(ctx)
		if err == nil {
			return bal, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("⚠️ Balance fetch failed")
	}
	return decimal.Zero, fmt.Errorf("balance unavailable after %d attempts: %w", e.cfg.BalanceAttempts, lastErr)
}

// Stop halts the user's session. The decision loop exits at its next wait.
func (e *Engine) Stop(userID int64) (Status, error) {
	s, ok := e.router.Session(userID)
	if !ok {
		return Status{}, ErrNotRunning
	}
	events := s.Stop(HaltStopped)
	if events == nil {
		return s.Status(), ErrNotRunning
	}
	e.notify(events)
	return s.Status(), nil
}

// Status returns the user's latest session, running or not
func (e *Engine) Status(userID int64) (Status, bool) {
	s, ok := e.router.Session(userID)
	if !ok {
		return Status{}, false
	}
	return s.Status(), true
}

// Sessions lists every running session
func (e *Engine) Sessions() []Status {
	live := e.router.Running()
	out := make([]Status, 0, len(live))
	for _, s := range live {
		out = append(out, s.Status())
	}
	return out
}

// Targets implements execution.Source
func (e *Engine) Targets() []execution.Target {
	live := e.router.Running()
	out := make([]execution.Target, 0, len(live))
	for _, s := range live {
		out = append(out, s)
	}
	return out
}

// Shutdown halts every session and waits for their loops to exit
func (e *Engine) Shutdown(ctx context.Context) {
	live := e.router.Running()
	for _, s := range live {
		e.notify(s.Stop(HaltShutdown))
	}
	e.cancel()

	for _, s := range live {
		select {
		case <-s.Done():
		case <-ctx.Done():
			log.Warn().Msg("Shutdown timed out waiting for sessions")
			return
		}
	}
	log.Info().Int("sessions", len(live)).Msg("Engine stopped")
}
