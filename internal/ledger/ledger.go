// Package ledger tracks transfer requests and their lifecycle state.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/xiaot623/switchboard/internal/domain"
)

// SessionChecker reports whether a call is currently registered. The
// session registry implements it.
type SessionChecker interface {
	Has(callID string) bool
}

// Sink receives a copy of every transfer after each lifecycle
// transition. Sinks are best-effort: a sink error is logged by the
// caller and never fails the transition.
type Sink interface {
	RecordTransfer(req *domain.TransferRequest) error
}

// Ledger is the in-memory transfer ledger. One mutex guards all state;
// Accept under that mutex is the linearization point for claim races.
type Ledger struct {
	mu       sync.Mutex
	requests []*domain.TransferRequest
	byID     map[string]*domain.TransferRequest
	seq      int

	sessions SessionChecker
	sink     Sink
}

// New creates a ledger backed by the given session checker. sink may be
// nil (memory-only mode).
func New(sessions SessionChecker, sink Sink) *Ledger {
	return &Ledger{
		byID:     make(map[string]*domain.TransferRequest),
		sessions: sessions,
		sink:     sink,
	}
}

// Create adds a new pending transfer request for a registered call. It
// fails with domain.ErrUnknownCall, without mutating the ledger, if the
// call ID is not in the registry.
func (l *Ledger) Create(callID, reason string) (*domain.TransferRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.sessions.Has(callID) {
		return nil, domain.ErrUnknownCall
	}

	l.seq++
	req := &domain.TransferRequest{
		ID:        fmt.Sprintf("tr_%d_%s", l.seq, time.Now().Format("150405")),
		CallID:    callID,
		Reason:    reason,
		Status:    domain.TransferStatusPending,
		CreatedAt: time.Now(),
	}
	l.requests = append(l.requests, req)
	l.byID[req.ID] = req

	l.notify(req)
	return snapshot(req), nil
}

// ListPending returns a snapshot of pending requests in insertion order.
func (l *Ledger) ListPending() []domain.TransferRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pending []domain.TransferRequest
	for _, req := range l.requests {
		if req.Status == domain.TransferStatusPending {
			pending = append(pending, *req)
		}
	}
	return pending
}

// PendingForCall returns the IDs of pending requests for one call.
func (l *Ledger) PendingForCall(callID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []string
	for _, req := range l.requests {
		if req.CallID == callID && req.Status == domain.TransferStatusPending {
			ids = append(ids, req.ID)
		}
	}
	return ids
}

// FindByID returns a copy of the request, or nil if unknown.
func (l *Ledger) FindByID(id string) *domain.TransferRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.byID[id]
	if !ok {
		return nil
	}
	return snapshot(req)
}

// Accept atomically transitions a pending request to accepted and
// records the claiming operator. Exactly one concurrent caller wins;
// the rest get domain.ErrAlreadyHandled. Unknown IDs get
// domain.ErrNotFound.
func (l *Ledger) Accept(id, operatorName string) (*domain.TransferRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Status != domain.TransferStatusPending {
		return nil, domain.ErrAlreadyHandled
	}

	now := time.Now()
	req.Status = domain.TransferStatusAccepted
	req.Operator = operatorName
	req.AcceptedAt = &now

	l.notify(req)
	return snapshot(req), nil
}

// Complete transitions a request to completed. Legal from both accepted
// and pending (a call may end before anyone claims). Idempotent: unknown
// IDs and already-completed requests are a no-op.
func (l *Ledger) Complete(id string) *domain.TransferRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.byID[id]
	if !ok {
		return nil
	}
	if req.Status == domain.TransferStatusCompleted {
		return snapshot(req)
	}

	now := time.Now()
	req.Status = domain.TransferStatusCompleted
	req.CompletedAt = &now

	l.notify(req)
	return snapshot(req)
}

func (l *Ledger) notify(req *domain.TransferRequest) {
	if l.sink == nil {
		return
	}
	// Sink errors are swallowed here; the archive logs its own failures.
	_ = l.sink.RecordTransfer(snapshot(req))
}

func snapshot(req *domain.TransferRequest) *domain.TransferRequest {
	cp := *req
	return &cp
}
