package engine

import (
	"context"
	"strings"
)

// Scripted is a keyword-driven engine used in demo mode and tests. No
// model behind it; it reacts to obvious phrases the way the production
// engine is instructed to.
type Scripted struct{}

// NewScripted creates a scripted engine.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Ensure Scripted implements Engine.
var _ Engine = (*Scripted)(nil)

// Greet returns the standard opening message.
func (s *Scripted) Greet(ctx context.Context) (string, error) {
	return greeting, nil
}

// Respond matches the utterance against trigger phrases.
func (s *Scripted) Respond(ctx context.Context, utterance string, tools Tools) (string, error) {
	lower := strings.ToLower(utterance)

	if containsAny(lower, "terrible", "awful", "angry", "ridiculous", "worst") {
		tools.NoteNegativeSentiment()
	}

	switch {
	case containsAny(lower, "human", "real person", "representative", "agent", "speak to someone"):
		return tools.EscalateToHuman(ctx, "Customer request")
	case containsAny(lower, "goodbye", "bye", "that's all", "thank you, that is all"):
		return tools.EndCall(ctx)
	default:
		return "I understand. Could you tell me a bit more so I can help?", nil
	}
}

func containsAny(s string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
