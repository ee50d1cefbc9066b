package strategy

import (
	"fmt"

	"github.com/web3guy0/bsbot/types"
)

// BeatrixStrategy (BEATRIX) waits for a 7 and then bets from the last digit
// of that round's id: 0,1,2,3,7 → SMALL, otherwise BIG. Any other settled
// digit puts it back to waiting.
type BeatrixStrategy struct {
	waiting bool
	round   string
}

func NewBeatrix() *BeatrixStrategy {
	return &BeatrixStrategy{waiting: true}
}

func (b *BeatrixStrategy) Kind() Kind { return Beatrix }

func (b *BeatrixStrategy) Decide(Input) Decision {
	if b.waiting || b.round == "" {
		return Decision{Side: types.Big, Skip: true, Reason: "waiting for 7"}
	}
	last := b.round[len(b.round)-1]
	side := types.Big
	switch last {
	case '0', '1', '2', '3', '7':
		side = types.Small
	}
	return Decision{Side: side, Reason: fmt.Sprintf("round %s ends with %c", b.round, last)}
}

func (b *BeatrixStrategy) Observe(r Result) Feedback {
	if r.Settlement.Digit == 7 {
		b.waiting = false
		b.round = r.Settlement.RoundID
	} else {
		b.waiting = true
	}
	return Feedback{}
}
