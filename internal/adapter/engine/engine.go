// Package engine provides an abstraction for the conversational
// decision engine driving the automated agent.
package engine

import "context"

// Tools is the capability surface the engine can invoke on a call
// session. The call session controller implements it.
type Tools interface {
	// EscalateToHuman requests a hand-off to a human operator. The
	// returned string is what the agent says to the caller.
	EscalateToHuman(ctx context.Context, reason string) (string, error)

	// EndCall ends the call gracefully and returns the closing message.
	EndCall(ctx context.Context) (string, error)

	// NoteNegativeSentiment records that the caller sounded frustrated.
	NoteNegativeSentiment()
}

// Engine decides how the automated agent responds to the caller.
type Engine interface {
	// Greet produces the opening message for a new call.
	Greet(ctx context.Context) (string, error)

	// Respond handles one caller utterance. It may invoke tools; the
	// returned string is the agent's spoken reply.
	Respond(ctx context.Context, utterance string, tools Tools) (string, error)
}
