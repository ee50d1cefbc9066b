package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Side is the Big/Small classification of a settled digit
type Side string

const (
	Big   Side = "B"
	Small Side = "S"
)

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == Big {
		return Small
	}
	return Big
}

// Valid reports whether s is B or S
func (s Side) Valid() bool {
	return s == Big || s == Small
}

// Label is the long form used in notifications
func (s Side) Label() string {
	if s == Big {
		return "BIG"
	}
	return "SMALL"
}

// SideFromDigit classifies a digit: 5-9 is Big, 0-4 is Small
func SideFromDigit(d int) Side {
	if d >= 5 {
		return Big
	}
	return Small
}

// ParseSide accepts B/S or BIG/SMALL in any case
func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "B", "BIG":
		return Big, nil
	case "S", "SMALL":
		return Small, nil
	}
	return "", fmt.Errorf("invalid side %q", v)
}

// ParseSequence turns "BSBB" into sides, rejecting anything but B and S
func ParseSequence(v string) ([]Side, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return nil, fmt.Errorf("empty sequence")
	}
	out := make([]Side, 0, len(v))
	for _, r := range v {
		switch Side(r) {
		case Big, Small:
			out = append(out, Side(r))
		default:
			return nil, fmt.Errorf("invalid character %q in sequence %q", r, v)
		}
	}
	return out, nil
}

// SequenceString joins sides back to "BSBB"
func SequenceString(sides []Side) string {
	var sb strings.Builder
	for _, s := range sides {
		sb.WriteString(string(s))
	}
	return sb.String()
}

// GameKind selects which platform game a session plays
type GameKind string

const (
	Wingo    GameKind = "WINGO"
	Wingo30s GameKind = "WINGO_30S"
	TRX      GameKind = "TRX"
)

// TypeID is the platform's numeric game id
func (g GameKind) TypeID() int {
	switch g {
	case TRX:
		return 13
	case Wingo30s:
		return 30
	default:
		return 1
	}
}

// ParseGameKind normalizes user input into a GameKind
func ParseGameKind(v string) (GameKind, error) {
	switch GameKind(strings.ToUpper(strings.TrimSpace(v))) {
	case Wingo, "WINGO_1M", "WINGO1":
		return Wingo, nil
	case Wingo30s, "WINGO30S", "WINGO_30":
		return Wingo30s, nil
	case TRX:
		return TRX, nil
	}
	return "", fmt.Errorf("unknown game %q", v)
}

// ═══════════════════════════════════════════════════════════════════════════════
// ROUNDS & ENTRIES
// ═══════════════════════════════════════════════════════════════════════════════

// Settlement is a settled round: its issue number and the drawn digit
type Settlement struct {
	RoundID string
	Digit   int
}

// Side classifies the settled digit
func (s Settlement) Side() Side {
	return SideFromDigit(s.Digit)
}

// PendingEntry is a placed (real or virtual) bet awaiting settlement
type PendingEntry struct {
	RoundID    string
	Side       Side
	Requested  decimal.Decimal // progression stake before decomposition
	Amount     decimal.Decimal // what was actually submitted
	UnitAmount decimal.Decimal
	UnitCount  int64
	Virtual    bool
	PlacedAt   time.Time
}

// SkippedEntry tracks a round the session chose not to wager on
type SkippedEntry struct {
	RoundID    string
	Side       Side // bookkeeping only
	Virtual    bool
	RecordedAt time.Time
}
