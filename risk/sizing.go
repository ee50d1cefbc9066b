package risk

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BET SIZING - Split a stake into unit × count
// ═══════════════════════════════════════════════════════════════════════════════
//
// The platform takes a unit amount and a repeat count. The unit is picked
// from the trailing zeros of the stake:
//
//   ≥4 zeros → 10000, 3 → 1000, 2 → 100, 1 → 10
//   none     → 10^(digits-1)
//
// count = max(1, floor(stake / unit)), actual = unit × count.
//
// ═══════════════════════════════════════════════════════════════════════════════

// BetDetails is what actually gets submitted for a stake
type BetDetails struct {
	Unit   decimal.Decimal
	Count  int64
	Actual decimal.Decimal
}

// UnitFor returns the submission unit for a whole amount
func UnitFor(amount int64) int64 {
	if amount <= 0 {
		return 1
	}
	s := strconv.FormatInt(amount, 10)
	zeros := len(s) - len(strings.TrimRight(s, "0"))
	switch {
	case zeros >= 4:
		return 10000
	case zeros == 3:
		return 1000
	case zeros == 2:
		return 100
	case zeros == 1:
		return 10
	}
	unit := int64(1)
	for i := 1; i < len(s); i++ {
		unit *= 10
	}
	return unit
}

// Decompose splits a desired stake. Fractions are dropped; a stake below 1
// yields zero details, which callers treat as unplaceable.
func Decompose(desired decimal.Decimal) BetDetails {
	amount := desired.IntPart()
	if amount <= 0 {
		return BetDetails{Unit: decimal.Zero, Actual: decimal.Zero}
	}

	unit := UnitFor(amount)
	count := amount / unit
	if count < 1 {
		count = 1
	}
	return BetDetails{
		Unit:   decimal.NewFromInt(unit),
		Count:  count,
		Actual: decimal.NewFromInt(unit * count),
	}
}
