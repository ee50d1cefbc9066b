package strategy

import (
	"fmt"
	"hash/fnv"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITIONAL STRATEGIES - BABIO anchor, ALINKAR run length, MAY BARANI sums
// ═══════════════════════════════════════════════════════════════════════════════

const (
	babioFar  = 8
	babioNear = 5
)

// Babio (BABIO_POSITION) copies the outcome at an anchor position counted
// back from the newest. The anchor flips between 8 and 5 after each loss.
type Babio struct {
	anchor int
}

func NewBabio() *Babio {
	return &Babio{anchor: babioFar}
}

func (b *Babio) Kind() Kind { return BabioPos }

func (b *Babio) Decide(in Input) Decision {
	h := tail(in.History, ShortHistory)
	n := len(h)
	switch {
	case n == 0:
		return Decision{Side: types.Big, Reason: "no history"}
	case n >= b.anchor:
		return Decision{Side: h[n-b.anchor], Reason: fmt.Sprintf("position %d", b.anchor)}
	case n >= babioNear:
		return Decision{Side: h[n-babioNear], Reason: fmt.Sprintf("position %d", babioNear)}
	}
	return Decision{Side: h[n-1], Reason: "most recent"}
}

func (b *Babio) Observe(r Result) Feedback {
	if !r.Win {
		if b.anchor == babioFar {
			b.anchor = babioNear
		} else {
			b.anchor = babioFar
		}
	}
	return Feedback{}
}

// Anchor returns the current anchor position
func (b *Babio) Anchor() int { return b.anchor }

const alinkarLookback = 5

// Alinkar (ALINKAR_STREAK) reads the run length of the newest outcome:
// 1 fade, 2 follow, 3 fade, 4+ follow.
type Alinkar struct{}

func (a *Alinkar) Kind() Kind { return AlinkarRun }

func (a *Alinkar) Decide(in Input) Decision {
	h := tail(in.History, alinkarLookback)
	if len(h) == 0 {
		side := coin(in.RoundID)
		return Decision{Side: side, Reason: "first bet, coin " + string(side)}
	}

	last := h[len(h)-1]
	run := 1
	for i := len(h) - 2; i >= 0 && h[i] == last; i-- {
		run++
	}

	side := last
	if run == 1 || run == 3 {
		side = last.Opposite()
	}
	return Decision{Side: side, Reason: fmt.Sprintf("%d×%s", run, last)}
}

func (a *Alinkar) Observe(Result) Feedback { return Feedback{} }

// coin flips on the round id so the same round always lands the same side
func coin(roundID string) types.Side {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roundID))
	if h.Sum32()%2 == 0 {
		return types.Big
	}
	return types.Small
}

const (
	baraniWindow = 5
	baraniBig    = 7
	baraniSmall  = 2
)

// Arithmetic (MAY_BARANI_ARITHMETIC) subtracts the mapped sum of older
// outcomes from the newest five and reads the resulting digit.
type Arithmetic struct{}

func (m *Arithmetic) Kind() Kind { return MayBarani }

func (m *Arithmetic) Decide(in Input) Decision {
	h := in.History
	last, ok := in.Last()
	if !ok {
		return Decision{Side: types.Big, Reason: "no history"}
	}
	if len(h) < baraniWindow {
		return Decision{Side: last, Reason: "echo last"}
	}

	split := len(h) - baraniWindow
	value := mappedSum(h[split:]) - mappedSum(h[:split])
	if value < 0 {
		value = -value
	}

	digit := value
	twoDigit := value >= 10
	if twoDigit {
		digit = value % 10
	}

	side := types.SideFromDigit(digit)
	if twoDigit {
		side = side.Opposite()
	}
	return Decision{Side: side, Reason: fmt.Sprintf("value %d digit %d", value, digit)}
}

func (m *Arithmetic) Observe(Result) Feedback { return Feedback{} }

func mappedSum(h []types.Side) int {
	sum := 0
	for _, s := range h {
		if s == types.Big {
			sum += baraniBig
		} else {
			sum += baraniSmall
		}
	}
	return sum
}
