package session_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/switchboard/internal/adapter/engine"
	"github.com/xiaot623/switchboard/internal/adapter/media"
	"github.com/xiaot623/switchboard/internal/coordinator"
	"github.com/xiaot623/switchboard/internal/directory"
	"github.com/xiaot623/switchboard/internal/domain"
	"github.com/xiaot623/switchboard/internal/ledger"
	"github.com/xiaot623/switchboard/internal/registry"
	"github.com/xiaot623/switchboard/internal/session"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type memArchive struct {
	mu   sync.Mutex
	logs map[string][]domain.LogEntry
}

func newMemArchive() *memArchive {
	return &memArchive{logs: make(map[string][]domain.LogEntry)}
}

func (a *memArchive) SaveCallLog(ctx context.Context, callID string, entries []domain.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs[callID] = entries
	return nil
}

func (a *memArchive) get(callID string) []domain.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logs[callID]
}

type fixture struct {
	reg   *registry.Registry
	led   *ledger.Ledger
	coord *coordinator.Coordinator
	arch  *memArchive
	room  *media.SimRoom
	ctrl  *session.Controller
}

func startCall(t *testing.T, callID string) *fixture {
	t.Helper()

	reg := registry.New()
	led := ledger.New(reg, nil)
	dir := directory.New()
	coord := coordinator.New(reg, led, dir)
	arch := newMemArchive()
	room := media.NewSimRoom(callID)

	ctrl := session.NewController(room, engine.NewScripted(), reg, coord, arch)
	go ctrl.Run(context.Background())

	require.Eventually(t, func() bool { return reg.Has(callID) }, waitFor, tick)
	require.Equal(t, session.StateActive, ctrl.State())

	return &fixture{reg: reg, led: led, coord: coord, arch: arch, room: room, ctrl: ctrl}
}

func TestEscalationStaysActive(t *testing.T) {
	f := startCall(t, "room-1")

	reply := f.ctrl.HandleUtterance(context.Background(), "I want to speak to a human")
	assert.Contains(t, reply, "transferring you")
	assert.Equal(t, session.StateActive, f.ctrl.State())

	pending := f.led.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "room-1", pending[0].CallID)

	// A second escalation attempt is turned down locally.
	reply = f.ctrl.HandleUtterance(context.Background(), "get me a human now")
	assert.Equal(t, "Transfer already in progress.", reply)
	assert.Len(t, f.led.ListPending(), 1)
}

func TestClaimDisengagesAgent(t *testing.T) {
	f := startCall(t, "room-1")

	f.ctrl.HandleUtterance(context.Background(), "I want to speak to a human")
	pending := f.led.ListPending()
	require.Len(t, pending, 1)

	_, _, err := f.coord.Claim(context.Background(), pending[0].ID, "alice")
	require.NoError(t, err)
	assert.True(t, f.ctrl.ShouldDisengage())

	require.Eventually(t, func() bool {
		return f.ctrl.State() == session.StateTerminated
	}, waitFor, tick)
	assert.True(t, f.room.Disconnected())
	assert.False(t, f.reg.Has("room-1"))
}

func TestOperatorJoinTriggersDisengage(t *testing.T) {
	f := startCall(t, "room-1")

	// A caller joining does not evict the agent.
	f.room.Join("caller-555")
	assert.Never(t, func() bool { return f.ctrl.ShouldDisengage() }, 100*time.Millisecond, tick)

	f.room.Join("agent_alice")
	require.Eventually(t, func() bool {
		return f.ctrl.State() == session.StateTerminated
	}, waitFor, tick)
	assert.True(t, f.room.Disconnected())
}

func TestEndCallNeutral(t *testing.T) {
	f := startCall(t, "room-1")

	reply := f.ctrl.HandleUtterance(context.Background(), "okay goodbye")
	assert.Equal(t, "Thank you for contacting us. Have a great day!", reply)

	require.Eventually(t, func() bool {
		return f.ctrl.State() == session.StateTerminated
	}, waitFor, tick)
	assert.False(t, f.reg.Has("room-1"))
}

func TestEndCallApologetic(t *testing.T) {
	f := startCall(t, "room-1")

	f.ctrl.HandleUtterance(context.Background(), "this service has been terrible")
	assert.Equal(t, 1, f.ctrl.NegativeSentiment())

	reply := f.ctrl.HandleUtterance(context.Background(), "goodbye")
	assert.True(t, strings.Contains(reply, "apologize"), "expected apologetic closing, got %q", reply)

	require.Eventually(t, func() bool {
		return f.ctrl.State() == session.StateTerminated
	}, waitFor, tick)
}

func TestNaturalEndAbandonsPendingTransfer(t *testing.T) {
	f := startCall(t, "room-1")

	f.ctrl.HandleUtterance(context.Background(), "I want a human")
	pending := f.led.ListPending()
	require.Len(t, pending, 1)

	f.ctrl.HandleUtterance(context.Background(), "actually nevermind, goodbye")
	require.Eventually(t, func() bool {
		return f.ctrl.State() == session.StateTerminated
	}, waitFor, tick)

	// The stale request is swept; a late claim fails.
	assert.Empty(t, f.led.ListPending())
	_, _, err := f.coord.Claim(context.Background(), pending[0].ID, "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyHandled)
}

func TestConversationLogArchived(t *testing.T) {
	f := startCall(t, "room-1")

	f.ctrl.HandleUtterance(context.Background(), "hello there")
	f.ctrl.HandleUtterance(context.Background(), "goodbye")

	require.Eventually(t, func() bool {
		return f.ctrl.State() == session.StateTerminated
	}, waitFor, tick)

	entries := f.arch.get("room-1")
	require.NotEmpty(t, entries)
	// Greeting first, closing message last.
	assert.Equal(t, "assistant", entries[0].Role)
	assert.Contains(t, entries[0].Content, "ShopEase")
	assert.Contains(t, entries[len(entries)-1].Content, "Have a great day")
}

func TestDuplicateCallRegistration(t *testing.T) {
	f := startCall(t, "room-1")

	dup := session.NewController(media.NewSimRoom("room-1"), engine.NewScripted(), f.reg, f.coord, nil)
	err := dup.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrDuplicateCall)
	assert.Equal(t, session.StateTerminated, dup.State())
}
