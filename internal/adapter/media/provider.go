package media

import (
	"context"
	"sync"
)

// SimProvider hands out simulated rooms, one per call ID. Used in demo
// mode and tests; the production provider is the media server SDK.
type SimProvider struct {
	mu    sync.Mutex
	rooms map[string]*SimRoom
}

// NewSimProvider creates a simulated room provider.
func NewSimProvider() *SimProvider {
	return &SimProvider{
		rooms: make(map[string]*SimRoom),
	}
}

// Connect returns the simulated room for a call, creating it on first
// use.
func (p *SimProvider) Connect(ctx context.Context, callID string) (Room, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if room, ok := p.rooms[callID]; ok {
		return room, nil
	}
	room := NewSimRoom(callID)
	p.rooms[callID] = room
	return room, nil
}

// Room returns the simulated room for a call, or nil.
func (p *SimProvider) Room(callID string) *SimRoom {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rooms[callID]
}
