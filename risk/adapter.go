package risk

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ADAPTER - User input → risk config values
// ═══════════════════════════════════════════════════════════════════════════════
//
// Chat commands and env vars arrive as text; these helpers turn them into
// the typed values Config expects, with the same errors Config would raise.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ParseLadder reads "100,200,500" (commas or spaces)
func ParseLadder(v string) ([]decimal.Decimal, error) {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return nil, ErrEmptyLadder
	}
	out := make([]decimal.Decimal, 0, len(fields))
	for _, f := range fields {
		amt, err := decimal.NewFromString(f)
		if err != nil {
			return nil, fmt.Errorf("bet size %q: %w", f, err)
		}
		if !amt.IsPositive() {
			return nil, fmt.Errorf("%w: %s", ErrLadderAmount, f)
		}
		out = append(out, amt)
	}
	return out, nil
}

// ParseAmount reads a non-negative magnitude; "0" or "off" disables
func ParseAmount(v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" || v == "off" || v == "none" {
		return decimal.Zero, nil
	}
	amt, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", v, err)
	}
	if amt.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative: %s", v)
	}
	return amt, nil
}

// LadderString renders a ladder for display
func LadderString(ladder []decimal.Decimal) string {
	parts := make([]string, len(ladder))
	for i, amt := range ladder {
		parts[i] = amt.String()
	}
	return strings.Join(parts, ",")
}
