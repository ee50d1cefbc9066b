package feeds

import (
	"sync"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// HISTORY BUFFER - Bounded per-user outcome window
// ═══════════════════════════════════════════════════════════════════════════════
//
// Oldest first, ordered by round id. Appends past the limit evict from the
// front. A round id is only ever counted once, even if later settlement
// lists repeat it.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	ShortWindow = 10
	LongWindow  = 20

	minSeenMemory = 64
)

// History is a bounded, deduplicated sequence of settlements
type History struct {
	mu      sync.RWMutex
	limit   int
	entries []types.Settlement

	// round ids already appended, remembered longer than the window itself
	seen      map[string]struct{}
	seenOrder []string
	seenLimit int
}

// NewHistory creates a buffer holding at most limit settlements
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	seenLimit := limit * 4
	if seenLimit < minSeenMemory {
		seenLimit = minSeenMemory
	}
	return &History{
		limit:     limit,
		entries:   make([]types.Settlement, 0, limit),
		seen:      make(map[string]struct{}, seenLimit),
		seenLimit: seenLimit,
	}
}

// Limit returns the configured bound
func (h *History) Limit() int {
	return h.limit
}

// Append adds a settlement unless its round was already recorded.
// Returns true if the buffer changed.
func (h *History) Append(s types.Settlement) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.RoundID != "" {
		if _, dup := h.seen[s.RoundID]; dup {
			return false
		}
		h.remember(s.RoundID)
	}

	// a late round slots in behind newer ones
	i := len(h.entries)
	for i > 0 && s.RoundID != "" && roundBefore(s.RoundID, h.entries[i-1].RoundID) {
		i--
	}
	if i == 0 && len(h.entries) >= h.limit {
		return false // older than a full window
	}

	h.entries = append(h.entries, types.Settlement{})
	copy(h.entries[i+1:], h.entries[i:])
	h.entries[i] = s
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
	return true
}

// roundBefore orders numeric round ids of any length
func roundBefore(a, b string) bool {
	if b == "" {
		return false
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func (h *History) remember(id string) {
	h.seen[id] = struct{}{}
	h.seenOrder = append(h.seenOrder, id)
	if over := len(h.seenOrder) - h.seenLimit; over > 0 {
		for _, old := range h.seenOrder[:over] {
			delete(h.seen, old)
		}
		h.seenOrder = append(h.seenOrder[:0], h.seenOrder[over:]...)
	}
}

// AppendBatch takes a most-recent-first list (as the platform returns it) and
// appends it oldest first. Returns how many rounds were new.
func (h *History) AppendBatch(recentFirst []types.Settlement) int {
	added := 0
	for i := len(recentFirst) - 1; i >= 0; i-- {
		if h.Append(recentFirst[i]) {
			added++
		}
	}
	return added
}

// Seen reports whether the round was already appended
func (h *History) Seen(roundID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.seen[roundID]
	return ok
}

// Len returns the number of buffered settlements
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Settlements returns a copy, oldest first
func (h *History) Settlements() []types.Settlement {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.Settlement, len(h.entries))
	copy(out, h.entries)
	return out
}

// Sides returns the classifications, oldest first
func (h *History) Sides() []types.Side {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.Side, len(h.entries))
	for i, s := range h.entries {
		out[i] = s.Side()
	}
	return out
}

// Digits returns the raw digits, oldest first
func (h *History) Digits() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int, len(h.entries))
	for i, s := range h.entries {
		out[i] = s.Digit
	}
	return out
}

// Last returns the most recent settlement
func (h *History) Last() (types.Settlement, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return types.Settlement{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Reset empties the buffer and forgets seen rounds
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
	h.seen = make(map[string]struct{}, h.seenLimit)
	h.seenOrder = nil
}
