package risk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENTRY LAYER - Wait for losses before wagering
// ═══════════════════════════════════════════════════════════════════════════════
//
//   1 → always enter
//   2 → enter only after one loss since the last win
//   3 → enter only after two consecutive losses
//
// Both wagered and skipped entries feed the gate; while it blocks, skipped
// entries are the only way it observes losses.
//
// ═══════════════════════════════════════════════════════════════════════════════

// EntryMode selects the entry layer rule
type EntryMode int

const (
	EntryAlways         EntryMode = 1
	EntryAfterLoss      EntryMode = 2
	EntryAfterTwoLosses EntryMode = 3
)

var ErrEntryMode = errors.New("entry layer must be 1, 2 or 3")

// ParseEntryMode parses "1".."3"
func ParseEntryMode(v string) (EntryMode, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrEntryMode, v)
	}
	mode := EntryMode(n)
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrEntryMode, n)
	}
	return mode, nil
}

func (m EntryMode) Valid() bool {
	return m >= EntryAlways && m <= EntryAfterTwoLosses
}

// EntryGate holds the entry layer waiting state
type EntryGate struct {
	mode    EntryMode
	waiting bool
	losses  int
}

// NewEntryGate starts waiting for modes 2 and 3
func NewEntryGate(mode EntryMode) (*EntryGate, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrEntryMode, mode)
	}
	return &EntryGate{mode: mode, waiting: mode != EntryAlways}, nil
}

func (g *EntryGate) Mode() EntryMode { return g.mode }

// Blocking reports whether the next entry must be skipped
func (g *EntryGate) Blocking() bool {
	return g.mode != EntryAlways && g.waiting
}

// Record feeds a settled entry (wagered or skipped) to the gate
func (g *EntryGate) Record(win bool) {
	switch g.mode {
	case EntryAfterLoss:
		g.waiting = win
	case EntryAfterTwoLosses:
		if win {
			g.waiting = true
			g.losses = 0
			return
		}
		g.losses++
		if g.losses >= 2 {
			g.waiting = false
		}
	}
}

// Reset restores the initial waiting state
func (g *EntryGate) Reset() {
	g.waiting = g.mode != EntryAlways
	g.losses = 0
}
