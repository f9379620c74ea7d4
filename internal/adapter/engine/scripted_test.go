package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/switchboard/internal/adapter/engine"
)

type recordingTools struct {
	escalateReason string
	ended          bool
	negatives      int
}

func (r *recordingTools) EscalateToHuman(ctx context.Context, reason string) (string, error) {
	r.escalateReason = reason
	return "transferring", nil
}

func (r *recordingTools) EndCall(ctx context.Context) (string, error) {
	r.ended = true
	return "goodbye", nil
}

func (r *recordingTools) NoteNegativeSentiment() {
	r.negatives++
}

func TestScriptedGreet(t *testing.T) {
	eng := engine.NewScripted()

	greeting, err := eng.Greet(context.Background())
	require.NoError(t, err)
	assert.Contains(t, greeting, "ShopEase")
}

func TestScriptedEscalates(t *testing.T) {
	eng := engine.NewScripted()
	tools := &recordingTools{}

	reply, err := eng.Respond(context.Background(), "Can I speak to a real person?", tools)
	require.NoError(t, err)
	assert.Equal(t, "transferring", reply)
	assert.Equal(t, "Customer request", tools.escalateReason)
}

func TestScriptedEndsCall(t *testing.T) {
	eng := engine.NewScripted()
	tools := &recordingTools{}

	reply, err := eng.Respond(context.Background(), "okay, goodbye", tools)
	require.NoError(t, err)
	assert.Equal(t, "goodbye", reply)
	assert.True(t, tools.ended)
}

func TestScriptedNotesNegativeSentiment(t *testing.T) {
	eng := engine.NewScripted()
	tools := &recordingTools{}

	_, err := eng.Respond(context.Background(), "this is ridiculous", tools)
	require.NoError(t, err)
	assert.Equal(t, 1, tools.negatives)
	assert.False(t, tools.ended)
}

func TestScriptedDefaultReply(t *testing.T) {
	eng := engine.NewScripted()
	tools := &recordingTools{}

	reply, err := eng.Respond(context.Background(), "where is my order?", tools)
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	assert.Empty(t, tools.escalateReason)
	assert.False(t, tools.ended)
}
