package execution

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RECONCILIATION - Match settled rounds to outstanding entries
// ═══════════════════════════════════════════════════════════════════════════════
//
// One loop for every active session. Each cycle:
// 1. Fetch the session's recent settlement list from its platform
// 2. Hand the whole batch to the session, which applies it under its own lock
// 3. Dispatch the resulting events
//
// A session's batch is applied to completion before the next session is
// visited, so settlement processing never interleaves within one user.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Target is one session as the reconciler sees it
type Target interface {
	UserID() int64
	Game() types.GameKind
	Platform() types.Platform

	// Reconcile applies a most-recent-first settlement list
	Reconcile(batch []types.Settlement, now time.Time) []types.Event

	// FetchFailed records a failed settlement fetch and may halt the session
	FetchFailed(err error) []types.Event
}

// Source lists the sessions to reconcile this cycle
type Source interface {
	Targets() []Target
}

// ReconcilerConfig holds loop settings
type ReconcilerConfig struct {
	Interval     time.Duration // default: 2s
	FetchTimeout time.Duration // default: 10s
}

// Reconciler runs the shared settlement loop
type Reconciler struct {
	mu       sync.Mutex
	source   Source
	notifier types.Notifier
	config   ReconcilerConfig

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReconciler creates a settlement reconciler
func NewReconciler(source Source, notifier types.Notifier, cfg ReconcilerConfig) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Reconciler{
		source:   source,
		notifier: notifier,
		config:   cfg,
	}
}

// Start launches the loop; it exits on Stop or when ctx is done
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()

	log.Info().Dur("interval", r.config.Interval).Msg("🔁 Reconciler started")
}

// Stop ends the loop and waits for the current cycle to finish
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	doneCh := r.doneCh
	r.mu.Unlock()

	<-doneCh
	log.Info().Msg("Reconciler stopped")
}

// RunOnce reconciles every target once and returns how many events went out
func (r *Reconciler) RunOnce(ctx context.Context) int {
	sent := 0
	for _, t := range r.source.Targets() {
		events := r.reconcile(ctx, t)
		for _, ev := range events {
			if r.notifier != nil {
				r.notifier.Notify(ev)
			}
		}
		sent += len(events)
	}
	return sent
}

func (r *Reconciler) reconcile(ctx context.Context, t Target) []types.Event {
	p := t.Platform()
	if p == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	batch, err := p.RecentSettlements(fetchCtx, t.Game())
	cancel()
	if err != nil {
		log.Warn().Err(err).Int64("user", t.UserID()).Msg("⚠️ Settlement fetch failed")
		return t.FetchFailed(err)
	}

	return t.Reconcile(batch, time.Now())
}
