// Package media abstracts the real-time media transport consumed by
// call session controllers.
package media

import "context"

// OperatorIdentityPrefix marks participants that are human operators
// rather than callers. Join tokens for operators carry this prefix.
const OperatorIdentityPrefix = "agent_"

// ParticipantEvent signals a participant joining or leaving a room.
type ParticipantEvent struct {
	Identity string
	Joined   bool
}

// IsOperator reports whether the event's participant is a human operator.
func (e ParticipantEvent) IsOperator() bool {
	return len(e.Identity) >= len(OperatorIdentityPrefix) &&
		e.Identity[:len(OperatorIdentityPrefix)] == OperatorIdentityPrefix
}

// Room is one media room the automated agent participates in. The media
// server itself is external; controllers only observe participant
// events and disconnect when told to disengage.
type Room interface {
	// Name returns the room (call) identifier.
	Name() string

	// Events streams participant join/leave events. The channel closes
	// when the room is torn down.
	Events() <-chan ParticipantEvent

	// Disconnect removes the automated agent from the room.
	Disconnect(ctx context.Context) error
}
