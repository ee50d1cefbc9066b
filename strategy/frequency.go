package strategy

import (
	"fmt"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FREQUENCY STRATEGIES - AI majority vote, LYZO fingerprint lookup
// ═══════════════════════════════════════════════════════════════════════════════

// majority returns the more frequent side, ties broken by the most recent
// outcome. Also returns the absolute count difference.
func majority(h []types.Side) (types.Side, int) {
	bigs, smalls := 0, 0
	for _, s := range h {
		if s == types.Big {
			bigs++
		} else {
			smalls++
		}
	}
	switch {
	case bigs > smalls:
		return types.Big, bigs - smalls
	case smalls > bigs:
		return types.Small, smalls - bigs
	}
	if len(h) == 0 {
		return types.Big, 0
	}
	return h[len(h)-1], 0
}

func tail(h []types.Side, n int) []types.Side {
	if len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// Frequency (AI_FREQUENCY) bets the majority of the last 10 and fades a
// three-in-a-row run.
type Frequency struct{}

func (f *Frequency) Kind() Kind { return AIFrequency }

func (f *Frequency) Decide(in Input) Decision {
	h := tail(in.History, ShortHistory)
	if len(h) == 0 {
		return Decision{Side: types.Big, Confidence: 50, Reason: "no history"}
	}

	if len(h) >= 3 {
		last := h[len(h)-3:]
		if last[0] == last[1] && last[1] == last[2] {
			return Decision{
				Side:       last[0].Opposite(),
				Confidence: 70,
				Reason:     fmt.Sprintf("three %s in a row", last[0].Label()),
			}
		}
	}

	side, diff := majority(h)
	conf := 50 + 5*diff
	if conf > 95 {
		conf = 95
	}
	return Decision{Side: side, Confidence: conf, Reason: fmt.Sprintf("majority over %d", len(h))}
}

func (f *Frequency) Observe(Result) Feedback { return Feedback{} }

// Lyzo (LYZO_PATTERN) looks the last 10 outcomes up in a fingerprint table
type Lyzo struct {
	table map[string]types.Side
}

func NewLyzo(table map[string]types.Side) *Lyzo {
	return &Lyzo{table: table}
}

func (l *Lyzo) Kind() Kind { return LyzoPattern }

func (l *Lyzo) Decide(in Input) Decision {
	last, ok := in.Last()
	if !ok {
		return Decision{Side: types.Big, Reason: "no history"}
	}
	if len(l.table) == 0 || len(in.History) < fingerprintLen {
		return Decision{Side: last, Reason: "echo last"}
	}

	key := types.SequenceString(tail(in.History, fingerprintLen))
	if side, hit := l.table[key]; hit {
		return Decision{Side: side, Reason: "pattern " + key}
	}
	side, _ := majority(tail(in.History, fingerprintLen))
	return Decision{Side: side, Reason: "pattern miss, majority"}
}

func (l *Lyzo) Observe(Result) Feedback { return Feedback{} }
