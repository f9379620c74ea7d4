package media

import (
	"context"
	"sync"
)

// SimRoom is an in-process Room used by tests and local demo runs.
type SimRoom struct {
	name   string
	events chan ParticipantEvent

	mu           sync.Mutex
	disconnected bool
}

// NewSimRoom creates a simulated room.
func NewSimRoom(name string) *SimRoom {
	return &SimRoom{
		name:   name,
		events: make(chan ParticipantEvent, 16),
	}
}

// Name returns the room identifier.
func (r *SimRoom) Name() string { return r.name }

// Events returns the participant event stream.
func (r *SimRoom) Events() <-chan ParticipantEvent { return r.events }

// Join simulates a participant joining the room.
func (r *SimRoom) Join(identity string) {
	r.send(ParticipantEvent{Identity: identity, Joined: true})
}

// Leave simulates a participant leaving the room.
func (r *SimRoom) Leave(identity string) {
	r.send(ParticipantEvent{Identity: identity, Joined: false})
}

// send drops the event once the room is disconnected; the stream is
// closed by then.
func (r *SimRoom) send(ev ParticipantEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disconnected {
		return
	}
	r.events <- ev
}

// Disconnect marks the agent as disconnected and closes the event
// stream. Idempotent.
func (r *SimRoom) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disconnected {
		return nil
	}
	r.disconnected = true
	close(r.events)
	return nil
}

// Disconnected reports whether the agent left the room.
func (r *SimRoom) Disconnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnected
}
