// Package directory tracks connected operator notification channels.
package directory

import (
	"log"
	"sync"
)

// Channel is an opaque handle for pushing notification messages to one
// connected operator. The WebSocket transport provides the production
// implementation.
type Channel interface {
	// Send pushes a message to the operator. It must not block
	// indefinitely; implementations return an error when the peer is
	// dead or too slow to keep up.
	Send(v any) error

	// Close releases the channel.
	Close() error
}

// Directory is the set of currently-connected operator channels. Safe
// for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	channels map[Channel]struct{}
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		channels: make(map[Channel]struct{}),
	}
}

// Add registers an operator channel.
func (d *Directory) Add(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[ch] = struct{}{}
}

// Remove unregisters an operator channel. Idempotent.
func (d *Directory) Remove(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.channels, ch)
}

// Count returns the number of connected operators.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.channels)
}

// Broadcast sends a message to every connected operator. At-most-once,
// best-effort: a failing channel is removed and closed, and delivery to
// the remaining channels continues. Sends happen outside the lock so a
// slow channel never delays the others.
func (d *Directory) Broadcast(v any) {
	d.mu.RLock()
	targets := make([]Channel, 0, len(d.channels))
	for ch := range d.channels {
		targets = append(targets, ch)
	}
	d.mu.RUnlock()

	for _, ch := range targets {
		if err := ch.Send(v); err != nil {
			log.Printf("WARN: operator channel send failed, removing: %v", err)
			d.Remove(ch)
			_ = ch.Close()
		}
	}
}
