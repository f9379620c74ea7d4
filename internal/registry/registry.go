// Package registry tracks the active automated-agent session for each call.
package registry

import (
	"sync"

	"github.com/xiaot623/switchboard/internal/domain"
)

// Session is the registry's view of a call session controller. The
// registry references sessions, it never owns them.
type Session interface {
	// CallID returns the call (room) identifier the session is handling.
	CallID() string

	// BeginTransfer atomically sets the session's transfer-requested
	// flag. It returns false if a transfer was already in flight.
	BeginTransfer() bool

	// SignalDisengage tells the automated agent to leave the call.
	// Safe to call more than once.
	SignalDisengage()
}

// Registry is an in-memory map of call ID to active session. Safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[string]Session),
	}
}

// Register adds a session under its call ID. It fails with
// domain.ErrDuplicateCall if the call ID is already present.
func (r *Registry) Register(sess Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	callID := sess.CallID()
	if _, ok := r.sessions[callID]; ok {
		return domain.ErrDuplicateCall
	}
	r.sessions[callID] = sess
	return nil
}

// Lookup returns the session for a call ID, or nil if absent.
func (r *Registry) Lookup(callID string) Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[callID]
}

// Has reports whether a call ID is registered.
func (r *Registry) Has(callID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[callID]
	return ok
}

// Unregister removes a call ID. No-op if absent.
func (r *Registry) Unregister(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callID)
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
