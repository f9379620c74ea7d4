// Package coordinator orchestrates the session registry, transfer
// ledger, and operator directory.
//
// The coordinator is the only component that mutates the ledger and a
// call session's disengage flag together. Ledger mutations always come
// first; operator notification is best-effort and never unwinds them.
package coordinator

import (
	"context"
	"log"

	"github.com/xiaot623/switchboard/internal/directory"
	"github.com/xiaot623/switchboard/internal/domain"
	"github.com/xiaot623/switchboard/internal/ledger"
	"github.com/xiaot623/switchboard/internal/registry"
)

// Coordinator drives the transfer lifecycle across the three stores.
type Coordinator struct {
	registry  *registry.Registry
	ledger    *ledger.Ledger
	directory *directory.Directory
}

// New creates a coordinator over the given stores.
func New(reg *registry.Registry, led *ledger.Ledger, dir *directory.Directory) *Coordinator {
	return &Coordinator{
		registry:  reg,
		ledger:    led,
		directory: dir,
	}
}

// RequestEscalation creates a transfer request for a call and announces
// it to all connected operators.
//
// Fails with domain.ErrUnknownCall when the call is not registered, and
// with domain.ErrAlreadyTransferring when an escalation is already in
// flight for the call. Once the session's transfer flag is set the
// escalation is considered in flight: the created request stays
// queryable via ListPending even if no operator heard the broadcast.
func (c *Coordinator) RequestEscalation(ctx context.Context, callID, reason string) (*domain.TransferRequest, error) {
	sess := c.registry.Lookup(callID)
	if sess == nil {
		return nil, domain.ErrUnknownCall
	}
	if !sess.BeginTransfer() {
		return nil, domain.ErrAlreadyTransferring
	}

	req, err := c.ledger.Create(callID, reason)
	if err != nil {
		return nil, err
	}

	log.Printf("transfer created: %s (call %s)", req.ID, callID)

	c.directory.Broadcast(domain.IncomingCallEvent{
		Type:     domain.EventTypeIncomingCall,
		Transfer: req,
	})

	return req, nil
}

// Claim resolves an operator's attempt to take a transfer. The ledger
// accept is the linearization point: exactly one concurrent claimant
// wins. On success the session's disengage flag is set and the
// remaining operators are told the transfer is taken.
//
// When the call session is already gone the accepted request is still
// returned together with domain.ErrSessionGone; the ledger transition
// is never rolled back.
func (c *Coordinator) Claim(ctx context.Context, requestID, operatorName string) (*domain.TransferRequest, registry.Session, error) {
	req, err := c.ledger.Accept(requestID, operatorName)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("transfer %s accepted by %s (call %s)", req.ID, operatorName, req.CallID)

	sess := c.registry.Lookup(req.CallID)
	if sess != nil {
		sess.SignalDisengage()
	}

	c.directory.Broadcast(domain.TransferAcceptedEvent{
		Type:       domain.EventTypeTransferAccepted,
		TransferID: req.ID,
	})

	if sess == nil {
		log.Printf("WARN: call %s already gone for transfer %s", req.CallID, req.ID)
		return req, nil, domain.ErrSessionGone
	}
	return req, sess, nil
}

// EndTransfer marks a transfer completed. Idempotent; unknown IDs are a
// reported no-op.
func (c *Coordinator) EndTransfer(ctx context.Context, requestID string) {
	if req := c.ledger.Complete(requestID); req == nil {
		log.Printf("WARN: end-transfer on unknown id %s", requestID)
	} else {
		log.Printf("transfer completed: %s", requestID)
	}
}

// AbandonCall completes every still-pending transfer request for a call
// that ended before anyone claimed it. Late claims on those requests
// fail with domain.ErrAlreadyHandled.
func (c *Coordinator) AbandonCall(ctx context.Context, callID string) {
	for _, id := range c.ledger.PendingForCall(callID) {
		c.ledger.Complete(id)
		log.Printf("transfer %s abandoned, call %s ended", id, callID)
	}
}
