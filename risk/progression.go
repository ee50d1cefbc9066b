package risk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PROGRESSION - Bet size state machine driven by win/loss
// ═══════════════════════════════════════════════════════════════════════════════
//
//   MARTINGALE       loss → next rung,     win → rung 0
//   ANTI_MARTINGALE  win  → next rung,     loss → rung 0
//   DALEMBERT        loss → +1 unit,       win → -1 unit (min 1), single rung
//   CUSTOM           loss → one rung up,   win → one rung down
//
// Rung indices are always clamped to the ladder.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Kind names a progression algorithm
type Kind string

const (
	Martingale     Kind = "MARTINGALE"
	AntiMartingale Kind = "ANTI_MARTINGALE"
	Dalembert      Kind = "DALEMBERT"
	Custom         Kind = "CUSTOM"
)

var (
	ErrEmptyLadder     = errors.New("bet size ladder is empty")
	ErrLadderAmount    = errors.New("bet sizes must be positive")
	ErrDalembertLadder = errors.New("DALEMBERT uses exactly one bet size")
	ErrUnknownKind     = errors.New("unknown progression")
)

// ParseKind accepts the progression name, with or without separators
func ParseKind(v string) (Kind, error) {
	key := strings.ToUpper(strings.TrimSpace(v))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch Kind(key) {
	case Martingale, AntiMartingale, Dalembert, Custom:
		return Kind(key), nil
	case "ANTIMARTINGALE", "ANTI":
		return AntiMartingale, nil
	case "D'ALEMBERT", "DALEMBART":
		return Dalembert, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, v)
}

// ProgressionSnapshot captures the movable part of a progression
type ProgressionSnapshot struct {
	Index int
	Units int
}

// Progression sizes each bet from a ladder of amounts
type Progression struct {
	kind   Kind
	ladder []decimal.Decimal
	index  int
	units  int
}

// NewProgression validates the ladder for kind and returns a reset progression
func NewProgression(kind Kind, ladder []decimal.Decimal) (*Progression, error) {
	if err := ValidateLadder(kind, ladder); err != nil {
		return nil, err
	}
	cp := make([]decimal.Decimal, len(ladder))
	copy(cp, ladder)
	return &Progression{kind: kind, ladder: cp, units: 1}, nil
}

// ValidateLadder checks a ladder without building a progression
func ValidateLadder(kind Kind, ladder []decimal.Decimal) error {
	switch kind {
	case Martingale, AntiMartingale, Dalembert, Custom:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(ladder) == 0 {
		return ErrEmptyLadder
	}
	for _, amt := range ladder {
		if !amt.IsPositive() {
			return fmt.Errorf("%w: %s", ErrLadderAmount, amt)
		}
	}
	if kind == Dalembert && len(ladder) != 1 {
		return fmt.Errorf("%w: got %d", ErrDalembertLadder, len(ladder))
	}
	return nil
}

func (p *Progression) Kind() Kind { return p.kind }
func (p *Progression) Index() int { return p.index }
func (p *Progression) Units() int { return p.units }

// Ladder returns a copy of the configured sizes
func (p *Progression) Ladder() []decimal.Decimal {
	out := make([]decimal.Decimal, len(p.ladder))
	copy(out, p.ladder)
	return out
}

// Min is the smallest configured size
func (p *Progression) Min() decimal.Decimal {
	lowest := p.ladder[0]
	for _, amt := range p.ladder[1:] {
		if amt.LessThan(lowest) {
			lowest = amt
		}
	}
	return lowest
}

// Rung returns ladder[i] clamped to the ladder bounds
func (p *Progression) Rung(i int) decimal.Decimal {
	return p.ladder[p.clamp(i)]
}

func (p *Progression) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > len(p.ladder)-1 {
		return len(p.ladder) - 1
	}
	return i
}

// NextAmount returns the stake for the next bet. For DALEMBERT the unit
// count is walked down while the stake exceeds balance, then the stake is
// capped at balance and floored at the unit size.
func (p *Progression) NextAmount(balance decimal.Decimal) decimal.Decimal {
	if p.kind != Dalembert {
		return p.ladder[p.clamp(p.index)]
	}

	unit := p.ladder[0]
	amount := unit.Mul(decimal.NewFromInt(int64(p.units)))
	for amount.GreaterThan(balance) && p.units > 1 {
		p.units--
		amount = unit.Mul(decimal.NewFromInt(int64(p.units)))
	}
	if amount.GreaterThan(balance) {
		amount = balance
	}
	if amount.LessThan(unit) {
		amount = unit
	}
	return amount
}

// Advance moves the progression after a settled real bet
func (p *Progression) Advance(win bool, used decimal.Decimal) {
	switch p.kind {
	case Martingale:
		if win {
			p.index = 0
		} else {
			p.index = p.clamp(p.index + 1)
		}
	case AntiMartingale:
		if win {
			p.index = p.clamp(p.index + 1)
		} else {
			p.index = 0
		}
	case Dalembert:
		if win {
			if p.units > 1 {
				p.units--
			}
		} else {
			p.units++
		}
	case Custom:
		at := 0
		for i, amt := range p.ladder {
			if amt.Equal(used) {
				at = i
				break
			}
		}
		if win {
			p.index = p.clamp(at - 1)
		} else {
			p.index = p.clamp(at + 1)
		}
	}
}

// Snapshot captures index and units
func (p *Progression) Snapshot() ProgressionSnapshot {
	return ProgressionSnapshot{Index: p.index, Units: p.units}
}

// Restore puts a snapshot back, clamped to the current ladder
func (p *Progression) Restore(s ProgressionSnapshot) {
	p.index = p.clamp(s.Index)
	p.units = s.Units
	if p.units < 1 {
		p.units = 1
	}
}

// Reset returns to the first rung and a single unit
func (p *Progression) Reset() {
	p.index = 0
	p.units = 1
}
