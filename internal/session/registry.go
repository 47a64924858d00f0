// Package session maps ephemeral connection identifiers to resolved
// user identities for the lifetime of a connection.
package session

import (
	"strings"
	"sync"
	"time"
	"unicode"
)

// Registry tracks connection state in memory. Entries are never
// evicted; connection identifiers are bounded by the number of live
// connections, so the map stays small. All methods are safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	identity map[string]string    // connection id → bound identity
	started  map[string]time.Time // connection id → session start

	now func() time.Time
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		identity: make(map[string]string),
		started:  make(map[string]time.Time),
		now:      time.Now,
	}
}

// Begin marks a connection as seen and records its start time. Calling
// Begin again for the same connection is a no-op, so the start time
// reflects the first turn.
func (r *Registry) Begin(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.started[connID]; !ok {
		r.started[connID] = r.now()
	}
}

// Resolve returns the identity bound to a connection. ok is false when
// the connection is unknown or not yet bound.
func (r *Registry) Resolve(connID string) (identity string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identity[connID]
	return id, ok
}

// Pending reports whether a connection has been seen but has no bound
// identity yet (the name-request turn has happened).
func (r *Registry) Pending(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, seen := r.started[connID]
	_, bound := r.identity[connID]
	return seen && !bound
}

// Bind associates an identity with a connection. The first binding
// wins: a connection's identity is immutable for its lifetime, so a
// repeated Bind returns the existing identity unchanged.
func (r *Registry) Bind(connID, identity string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.identity[connID]; ok {
		return existing
	}
	r.identity[connID] = identity
	if _, ok := r.started[connID]; !ok {
		r.started[connID] = r.now()
	}
	return identity
}

// Elapsed returns the time since the connection's first turn, or zero
// for unknown connections.
func (r *Registry) Elapsed(connID string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	start, ok := r.started[connID]
	if !ok {
		return 0
	}
	return r.now().Sub(start)
}

// End forgets a connection. Durable state keyed by identity is
// unaffected.
func (r *Registry) End(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.identity, connID)
	delete(r.started, connID)
}

// DeriveIdentity extracts a display name from free-form reply text:
// the last whitespace-delimited token, capitalized. Any text is
// accepted; names are self-reported and unverified.
func DeriveIdentity(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return capitalize(fields[len(fields)-1])
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
