// Package worker spawns a call session controller for each new call
// announced by the media layer.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/xiaot623/switchboard/internal/adapter/engine"
	"github.com/xiaot623/switchboard/internal/adapter/media"
	"github.com/xiaot623/switchboard/internal/domain"
	"github.com/xiaot623/switchboard/internal/registry"
	"github.com/xiaot623/switchboard/internal/session"
)

// Provider connects the automated agent to a call's media room. The
// production implementation lives in the media SDK; tests and demo mode
// use the simulated provider.
type Provider interface {
	Connect(ctx context.Context, callID string) (media.Room, error)
}

// Worker owns the set of running call controllers.
type Worker struct {
	provider Provider
	engine   engine.Engine
	reg      *registry.Registry
	coord    session.Coordinator
	archive  session.Archive

	mu          sync.Mutex
	controllers map[string]*session.Controller
}

// New creates a worker.
func New(provider Provider, eng engine.Engine, reg *registry.Registry, coord session.Coordinator, arch session.Archive) *Worker {
	return &Worker{
		provider:    provider,
		engine:      eng,
		reg:         reg,
		coord:       coord,
		archive:     arch,
		controllers: make(map[string]*session.Controller),
	}
}

// StartCall connects to the call's room and runs a controller for it in
// the background. The call ID is reserved before connecting so a
// concurrent start for the same call fails with ErrDuplicateCall
// instead of racing.
func (w *Worker) StartCall(ctx context.Context, callID string) (*session.Controller, error) {
	w.mu.Lock()
	if _, exists := w.controllers[callID]; exists {
		w.mu.Unlock()
		return nil, domain.ErrDuplicateCall
	}
	w.controllers[callID] = nil
	w.mu.Unlock()

	room, err := w.provider.Connect(ctx, callID)
	if err != nil {
		w.mu.Lock()
		delete(w.controllers, callID)
		w.mu.Unlock()
		return nil, fmt.Errorf("failed to connect media room %s: %w", callID, err)
	}

	ctrl := session.NewController(room, w.engine, w.reg, w.coord, w.archive)

	w.mu.Lock()
	w.controllers[callID] = ctrl
	w.mu.Unlock()

	go func() {
		if err := ctrl.Run(context.Background()); err != nil {
			log.Printf("WARN: controller for call %s exited: %v", callID, err)
		}
		// Only remove our own entry; the slot may belong to a newer
		// controller for a reused call ID.
		w.mu.Lock()
		if w.controllers[callID] == ctrl {
			delete(w.controllers, callID)
		}
		w.mu.Unlock()
	}()

	return ctrl, nil
}

// Get returns the controller for a call, or nil if none is running.
func (w *Worker) Get(callID string) *session.Controller {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.controllers[callID]
}

// Count returns the number of running controllers.
func (w *Worker) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.controllers)
}
