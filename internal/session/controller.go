// Package session runs the per-call controller for the automated agent.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xiaot623/switchboard/internal/adapter/engine"
	"github.com/xiaot623/switchboard/internal/adapter/media"
	"github.com/xiaot623/switchboard/internal/domain"
	"github.com/xiaot623/switchboard/internal/registry"
)

// State is the controller's lifecycle state.
type State string

const (
	StateStarting           State = "starting"
	StateActive             State = "active"
	StateDisengageRequested State = "disengage_requested"
	StateDisengaging        State = "disengaging"
	StateTerminated         State = "terminated"
)

// Closing messages for natural call end. Which one is spoken depends on
// the negative-sentiment counter.
const (
	closingNeutral    = "Thank you for contacting us. Have a great day!"
	closingApologetic = "Thank you for your patience. We sincerely apologize for any inconvenience. Your concern will be resolved soon. Goodbye!"
)

// Replies for escalation outcomes.
const (
	replyTransferring        = "I'm transferring you to our support specialist now. Please hold for just a moment..."
	replyAlreadyInProgress   = "Transfer already in progress."
	replyTransferFailed      = "I apologize, I'm having trouble with the transfer. Let me try to help you directly instead."
	replyCollaboratorTrouble = "I'm sorry, I'm having a little trouble right now. Could you say that again?"
)

// Coordinator is the controller's view of the transfer coordinator.
type Coordinator interface {
	RequestEscalation(ctx context.Context, callID, reason string) (*domain.TransferRequest, error)
	AbandonCall(ctx context.Context, callID string)
}

// Archive persists the conversation log when a call ends. May be nil.
type Archive interface {
	SaveCallLog(ctx context.Context, callID string, entries []domain.LogEntry) error
}

// Controller owns one call's mutable state and runs the automated agent
// until hand-off or natural call end.
type Controller struct {
	room    media.Room
	engine  engine.Engine
	reg     *registry.Registry
	coord   Coordinator
	archive Archive

	mu       sync.Mutex
	state    State
	negative int
	convLog  []domain.LogEntry

	transferRequested atomic.Bool
	shouldDisengage   atomic.Bool
	ended             atomic.Bool
	disengage         chan struct{}
	disengageOnce     sync.Once
	endCall           chan struct{}
	endOnce           sync.Once
}

// Controllers are registrable sessions and the engine's tool surface.
var (
	_ registry.Session = (*Controller)(nil)
	_ engine.Tools     = (*Controller)(nil)
)

// NewController creates a controller for a new call.
func NewController(room media.Room, eng engine.Engine, reg *registry.Registry, coord Coordinator, arch Archive) *Controller {
	return &Controller{
		room:      room,
		engine:    eng,
		reg:       reg,
		coord:     coord,
		archive:   arch,
		state:     StateStarting,
		disengage: make(chan struct{}),
		endCall:   make(chan struct{}),
	}
}

// CallID returns the room name of the call this controller handles.
func (c *Controller) CallID() string {
	return c.room.Name()
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// BeginTransfer atomically sets the transfer-requested flag. Returns
// false if an escalation is already in flight for this call.
func (c *Controller) BeginTransfer() bool {
	return c.transferRequested.CompareAndSwap(false, true)
}

// SignalDisengage tells the agent to leave the call. Idempotent; the
// run loop wakes immediately, there is no polling interval.
func (c *Controller) SignalDisengage() {
	c.shouldDisengage.Store(true)
	c.disengageOnce.Do(func() { close(c.disengage) })
}

// ShouldDisengage reports whether a disengage has been signaled.
func (c *Controller) ShouldDisengage() bool {
	return c.shouldDisengage.Load()
}

// Run registers the session and drives the agent until the call ends or
// a human operator takes over. Terminal states are absorbing; Run never
// restarts.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.reg.Register(c); err != nil {
		// Duplicate call IDs are a logic fault, not a recoverable state.
		log.Printf("ERROR: failed to register call %s: %v", c.CallID(), err)
		c.setState(StateTerminated)
		return err
	}
	c.setState(StateActive)

	if greeting, err := c.engine.Greet(ctx); err == nil {
		c.AppendLog("assistant", greeting)
	} else {
		log.Printf("WARN: greeting failed for call %s: %v", c.CallID(), err)
	}

	log.Printf("call started: %s", c.CallID())

	events := c.room.Events()
	for {
		select {
		case <-c.disengage:
			return c.runDisengage(ctx)

		case <-c.endCall:
			if err := c.room.Disconnect(ctx); err != nil {
				log.Printf("WARN: media teardown failed for %s: %v", c.CallID(), err)
			}
			c.teardown(ctx)
			log.Printf("call ended: %s", c.CallID())
			return nil

		case ev, ok := <-events:
			if !ok {
				// Room torn down underneath us; treat as call end.
				events = nil
				c.endOnce.Do(func() { close(c.endCall) })
				continue
			}
			if ev.Joined && ev.IsOperator() {
				log.Printf("human operator joined %s: %s", c.CallID(), ev.Identity)
				c.SignalDisengage()
			}

		case <-ctx.Done():
			if err := c.room.Disconnect(context.WithoutCancel(ctx)); err != nil {
				log.Printf("WARN: media teardown failed for %s: %v", c.CallID(), err)
			}
			c.teardown(ctx)
			return ctx.Err()
		}
	}
}

// runDisengage evicts the automated agent from the call so the human
// operator and caller talk directly.
func (c *Controller) runDisengage(ctx context.Context) error {
	c.setState(StateDisengageRequested)
	log.Printf("disengaging agent from call %s", c.CallID())

	c.setState(StateDisengaging)
	if err := c.room.Disconnect(ctx); err != nil {
		log.Printf("WARN: media teardown failed for %s: %v", c.CallID(), err)
	}

	c.teardown(ctx)
	log.Printf("agent disengaged from call %s", c.CallID())
	return nil
}

// teardown unregisters the session, sweeps any still-pending transfer
// requests, and archives the conversation log.
func (c *Controller) teardown(ctx context.Context) {
	c.reg.Unregister(c.CallID())
	c.coord.AbandonCall(ctx, c.CallID())
	c.saveConversationLog(ctx)
	c.setState(StateTerminated)
}

func (c *Controller) saveConversationLog(ctx context.Context) {
	if c.archive == nil {
		return
	}
	c.mu.Lock()
	entries := make([]domain.LogEntry, len(c.convLog))
	copy(entries, c.convLog)
	c.mu.Unlock()

	if len(entries) == 0 {
		return
	}
	if err := c.archive.SaveCallLog(ctx, c.CallID(), entries); err != nil {
		log.Printf("WARN: failed to archive log for %s: %v", c.CallID(), err)
	}
}

// AppendLog records one line of the conversation.
func (c *Controller) AppendLog(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.convLog = append(c.convLog, domain.LogEntry{
		Role:    role,
		Content: content,
		Ts:      time.Now(),
	})
}

// ConversationLog returns a copy of the conversation so far.
func (c *Controller) ConversationLog() []domain.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]domain.LogEntry, len(c.convLog))
	copy(entries, c.convLog)
	return entries
}

// NoteNegativeSentiment increments the negative-sentiment counter.
func (c *Controller) NoteNegativeSentiment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.negative++
}

// NegativeSentiment returns the current counter value.
func (c *Controller) NegativeSentiment() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negative
}

// HandleUtterance feeds one caller utterance through the engine.
// Collaborator failures never end the call; the agent asks the caller
// to repeat instead.
func (c *Controller) HandleUtterance(ctx context.Context, utterance string) string {
	c.AppendLog("caller", utterance)

	reply, err := c.engine.Respond(ctx, utterance, c)
	if err != nil {
		log.Printf("WARN: engine failed for call %s: %v", c.CallID(), err)
		reply = replyCollaboratorTrouble
	}
	// EndCall logs the closing message itself before the run loop
	// archives the conversation.
	if !c.ended.Load() {
		c.AppendLog("assistant", reply)
	}
	return reply
}

// EscalateToHuman requests a hand-off for this call. The state stays
// Active: disengage is driven by the operator's claim, not by the
// request itself.
func (c *Controller) EscalateToHuman(ctx context.Context, reason string) (string, error) {
	req, err := c.coord.RequestEscalation(ctx, c.CallID(), reason)
	switch {
	case errors.Is(err, domain.ErrAlreadyTransferring):
		return replyAlreadyInProgress, nil
	case err != nil:
		log.Printf("WARN: escalation failed for call %s: %v", c.CallID(), err)
		return replyTransferFailed, nil
	}

	log.Printf("escalating call %s: %s (transfer %s)", c.CallID(), reason, req.ID)
	return replyTransferring, nil
}

// EndCall ends the call gracefully. The closing message is apologetic
// when the caller sounded frustrated at any point, neutral otherwise.
func (c *Controller) EndCall(ctx context.Context) (string, error) {
	goodbye := closingNeutral
	if c.NegativeSentiment() > 0 {
		goodbye = closingApologetic
	}

	c.AppendLog("assistant", goodbye)
	c.ended.Store(true)
	c.endOnce.Do(func() { close(c.endCall) })
	return goodbye, nil
}
