package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind enumerates engine notifications
type EventKind string

const (
	EventBetPlaced        EventKind = "BET_PLACED"
	EventSkipRecorded     EventKind = "SKIP_RECORDED"
	EventRoundWon         EventKind = "ROUND_WON"
	EventRoundLost        EventKind = "ROUND_LOST"
	EventThresholdReached EventKind = "THRESHOLD_REACHED"
	EventSessionHalted    EventKind = "SESSION_HALTED"
)

// Event is a structured notification payload. The engine never renders text;
// collaborators (Telegram, storage, metrics) decide how to present it.
type Event struct {
	Kind      EventKind
	UserID    int64
	SessionID string
	Game      GameKind
	Strategy  string

	RoundID string
	Side    Side
	Amount  decimal.Decimal // zero for skipped entries
	Digit   int
	Result  Side
	Win     bool
	Skipped bool
	Virtual bool

	Balance decimal.Decimal
	Profit  decimal.Decimal

	Threshold string // which stop condition fired
	Reason    string
	Summary   *SessionSummary

	At time.Time
}

// SessionSummary is the final snapshot carried by SESSION_HALTED
type SessionSummary struct {
	Strategy          string
	Progression       string
	ProgressionIndex  int
	ProgressionUnits  int
	ConsecutiveLosses int
	SkipUntilWin      bool
	Wins              int
	Losses            int
	Skips             int
	Profit            decimal.Decimal
	Balance           decimal.Decimal
	Virtual           bool
	StartedAt         time.Time
	StoppedAt         time.Time
}

// Notifier receives engine events
type Notifier interface {
	Notify(ev Event)
}

// Notifiers fans out one event to several sinks
type Notifiers []Notifier

func (n Notifiers) Notify(ev Event) {
	for _, sink := range n {
		if sink != nil {
			sink.Notify(ev)
		}
	}
}
