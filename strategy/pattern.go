package strategy

import (
	"fmt"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PATTERN STRATEGIES - DREAM, LEO, fixed cyclic sequences
// ═══════════════════════════════════════════════════════════════════════════════

// Dream (DREAM_PATTERN) walks a digit-keyed pattern. A win (or the very first
// settlement) swaps in the pattern for the settled digit; a loss steps the
// cursor.
type Dream struct {
	table map[int][]types.Side

	started bool
	pattern []types.Side
	cursor  int
}

func NewDream(table map[int][]types.Side) *Dream {
	return &Dream{table: table}
}

func (d *Dream) Kind() Kind { return DreamPattern }

func (d *Dream) Decide(Input) Decision {
	if !d.started || len(d.pattern) == 0 {
		return Decision{Side: types.Big, Reason: "first bet"}
	}
	return Decision{
		Side:   d.pattern[d.cursor%len(d.pattern)],
		Reason: fmt.Sprintf("pattern %s[%d]", types.SequenceString(d.pattern), d.cursor),
	}
}

func (d *Dream) Observe(r Result) Feedback {
	if !d.started || r.Win {
		d.started = true
		d.pattern = d.table[r.Settlement.Digit]
		d.cursor = 0
		return Feedback{}
	}
	if len(d.pattern) > 0 {
		d.cursor = (d.cursor + 1) % len(d.pattern)
	}
	return Feedback{}
}

// Cursor exposes the pattern position (tests, status)
func (d *Dream) Cursor() int { return d.cursor }

// Sequence cycles a fixed sequence one step per recorded entry, ignoring
// outcomes. Serves BS_ORDER and DREAM2_PATTERN.
type Sequence struct {
	kind   Kind
	seq    []types.Side
	cursor int
}

func NewSequence(kind Kind, seq []types.Side) *Sequence {
	cp := make([]types.Side, len(seq))
	copy(cp, seq)
	return &Sequence{kind: kind, seq: cp}
}

func (s *Sequence) Kind() Kind { return s.kind }

func (s *Sequence) Decide(Input) Decision {
	i := s.cursor % len(s.seq)
	return Decision{Side: s.seq[i], Reason: fmt.Sprintf("step %d/%d", i+1, len(s.seq))}
}

func (s *Sequence) Observe(Result) Feedback { return Feedback{} }

// Advance moves to the next step after an entry is recorded
func (s *Sequence) Advance() {
	s.cursor = (s.cursor + 1) % len(s.seq)
}

// Leo (LEO_PATTERN) follows the BIG or SMALL pattern chosen by the last
// settled classification. The cursor steps on every settlement.
type Leo struct {
	last   types.Side
	cursor int
}

func (l *Leo) Kind() Kind { return LeoPattern }

func (l *Leo) Decide(Input) Decision {
	if l.last == "" {
		return Decision{Side: types.Big, Reason: "first bet"}
	}
	pattern := LeoSmallPattern
	if l.last == types.Big {
		pattern = LeoBigPattern
	}
	return Decision{
		Side:   pattern[l.cursor%len(pattern)],
		Reason: fmt.Sprintf("%s pattern[%d]", l.last.Label(), l.cursor),
	}
}

func (l *Leo) Observe(r Result) Feedback {
	l.last = r.Settlement.Side()
	l.cursor = (l.cursor + 1) % len(LeoBigPattern)
	return Feedback{}
}
