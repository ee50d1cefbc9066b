package core

import (
	"sort"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ROUTER - Per-user profile and session registry
// ═══════════════════════════════════════════════════════════════════════════════

type Router struct {
	mu       sync.RWMutex
	profiles map[int64]*Profile
	sessions map[int64]*Session // latest session per user, running or not
}

// NewRouter creates an empty registry
func NewRouter() *Router {
	return &Router{
		profiles: make(map[int64]*Profile),
		sessions: make(map[int64]*Session),
	}
}

// Profile returns the user's profile, creating it on first use
func (r *Router) Profile(userID int64) *Profile {
	r.mu.RLock()
	p, ok := r.profiles[userID]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		return p
	}
	p = NewProfile(userID)
	r.profiles[userID] = p
	return p
}

// Session returns the user's latest session
func (r *Router) Session(userID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Put replaces the user's session
func (r *Router) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.userID] = s
}

// Running returns live sessions ordered by user id
func (r *Router) Running() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	live := out[:0]
	for _, s := range out {
		if s.Running() {
			live = append(live, s)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].userID < live[j].userID })
	return live
}
