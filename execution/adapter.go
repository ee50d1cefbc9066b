package execution

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ADAPTER - Event sinks for the decision and reconciliation loops
// ═══════════════════════════════════════════════════════════════════════════════

// NotifierFunc makes a plain function a types.Notifier
type NotifierFunc func(ev types.Event)

func (f NotifierFunc) Notify(ev types.Event) { f(ev) }

// AsyncNotifier queues events for a slow sink (chat delivery, database) so
// the loops never block on it. Order is preserved.
type AsyncNotifier struct {
	sink  types.Notifier
	queue chan types.Event

	mu     sync.RWMutex // held for writing only while closing the queue
	closed bool
	done   chan struct{}
}

// NewAsyncNotifier starts the delivery goroutine
func NewAsyncNotifier(sink types.Notifier, buffer int) *AsyncNotifier {
	if buffer < 1 {
		buffer = 256
	}
	a := &AsyncNotifier{
		sink:  sink,
		queue: make(chan types.Event, buffer),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncNotifier) loop() {
	defer close(a.done)
	for ev := range a.queue {
		a.sink.Notify(ev)
	}
}

// Notify enqueues ev. When the queue is full the event is dropped, except
// SESSION_HALTED which waits for room. Events after Close are discarded.
func (a *AsyncNotifier) Notify(ev types.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		log.Debug().Str("kind", string(ev.Kind)).Int64("user", ev.UserID).Msg("Event after close, discarded")
		return
	}
	if ev.Kind == types.EventSessionHalted {
		a.queue <- ev
		return
	}
	select {
	case a.queue <- ev:
	default:
		log.Warn().Str("kind", string(ev.Kind)).Int64("user", ev.UserID).Msg("⚠️ Event queue full, dropping")
	}
}

// Close drains the queue and stops delivery
func (a *AsyncNotifier) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}
