package strategy

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SNIPER - Reversal hunter on extreme digits
// ═══════════════════════════════════════════════════════════════════════════════
//
//   digit 0 → arm BIG,   ladder [B]
//   digit 9 → arm SMALL, ladder [S]
//
// Each loss steps one rung (4 max). If the same extreme digit repeats on the
// first follow-up, the rest of the ladder is replaced:
//   0 → B S B B
//   9 → S B S S
// Otherwise rungs 2 and 3 repeat the armed direction.
//
// Stake comes from the bet size list at the current step, not from the
// progression. Two lifetime hits end the session, as does a full ladder of
// losses.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	SniperSteps = 4
	sniperHits  = 2
)

var (
	sniperRepeatZero = mustSequence("BSBB")
	sniperRepeatNine = mustSequence("SBSS")
)

type SniperStrategy struct {
	active    bool
	direction types.Side
	step      int
	hits      int
	ladder    []types.Side
	repeated  bool

	lastDigit int
	prevDigit int
	seen      int // settlements observed, caps at 2
}

func NewSniper() *SniperStrategy {
	return &SniperStrategy{}
}

func (s *SniperStrategy) Kind() Kind { return Sniper }

func (s *SniperStrategy) BypassGates() bool { return true }

// StakeIndex is the bet size rung for the next entry
func (s *SniperStrategy) StakeIndex() int { return s.step }

func (s *SniperStrategy) Decide(Input) Decision {
	if !s.active {
		if s.seen == 0 {
			return Decision{Side: types.Big, Skip: true, Reason: "waiting for 0 or 9"}
		}
		switch s.lastDigit {
		case 0:
			s.arm(types.Big)
		case 9:
			s.arm(types.Small)
		default:
			return Decision{Side: types.Big, Skip: true, Reason: fmt.Sprintf("digit %d, waiting for 0 or 9", s.lastDigit)}
		}
	}

	side := s.direction
	if s.step < len(s.ladder) {
		side = s.ladder[s.step]
	}
	return Decision{Side: side, Reason: fmt.Sprintf("step %d/%d", s.step+1, SniperSteps)}
}

func (s *SniperStrategy) arm(direction types.Side) {
	s.active = true
	s.direction = direction
	s.step = 0
	s.repeated = false
	s.ladder = []types.Side{direction}
}

func (s *SniperStrategy) disarm() {
	s.active = false
	s.step = 0
	s.repeated = false
	s.ladder = nil
}

func (s *SniperStrategy) Observe(r Result) Feedback {
	s.prevDigit = s.lastDigit
	s.lastDigit = r.Settlement.Digit
	if s.seen < 2 {
		s.seen++
	}

	if !s.active || r.Skipped {
		return Feedback{}
	}

	if r.Win {
		s.hits++
		s.disarm()
		if s.hits >= sniperHits {
			return Feedback{Halt: true, Reason: fmt.Sprintf("sniper hit %d times", s.hits)}
		}
		return Feedback{}
	}

	s.step++
	if s.step >= SniperSteps {
		s.disarm()
		return Feedback{Halt: true, Reason: fmt.Sprintf("sniper lost %d in a row", SniperSteps)}
	}

	sameExtreme := s.seen >= 2 && s.prevDigit == s.lastDigit && (s.lastDigit == 0 || s.lastDigit == 9)
	if s.step == 1 && sameExtreme {
		s.repeated = true
		if s.lastDigit == 0 {
			s.ladder = append([]types.Side(nil), sniperRepeatZero...)
		} else {
			s.ladder = append([]types.Side(nil), sniperRepeatNine...)
		}
		return Feedback{}
	}
	if sameExtreme {
		// no ladder is defined for a repeat past the first follow-up
		log.Warn().
			Int("step", s.step).
			Int("digit", s.lastDigit).
			Str("ladder", types.SequenceString(s.ladder)).
			Msg("SNIPER: repeated extreme digit at undefined step, ladder unchanged")
	}
	if !s.repeated && (s.step == 2 || s.step == 3) {
		s.ladder = append(s.ladder, s.direction)
	}
	return Feedback{}
}

// Active reports whether a ladder is armed
func (s *SniperStrategy) Active() bool { return s.active }

// Ladder returns a copy of the armed bet sequence
func (s *SniperStrategy) Ladder() []types.Side {
	return append([]types.Side(nil), s.ladder...)
}

// Hits returns lifetime wins
func (s *SniperStrategy) Hits() int { return s.hits }
