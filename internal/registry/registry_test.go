package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/switchboard/internal/domain"
	"github.com/xiaot623/switchboard/internal/registry"
)

type fakeSession struct {
	callID       string
	mu           sync.Mutex
	transferring bool
	disengaged   bool
}

func (f *fakeSession) CallID() string { return f.callID }

func (f *fakeSession) BeginTransfer() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferring {
		return false
	}
	f.transferring = true
	return true
}

func (f *fakeSession) SignalDisengage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disengaged = true
}

func TestRegisterAndLookup(t *testing.T) {
	reg := registry.New()
	sess := &fakeSession{callID: "room-1"}

	assert.NoError(t, reg.Register(sess))
	assert.Equal(t, sess, reg.Lookup("room-1"))
	assert.True(t, reg.Has("room-1"))
	assert.Equal(t, 1, reg.Count())
}

func TestRegisterDuplicate(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.Register(&fakeSession{callID: "room-1"}))

	err := reg.Register(&fakeSession{callID: "room-1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCall)
	assert.Equal(t, 1, reg.Count())
}

func TestLookupAbsent(t *testing.T) {
	reg := registry.New()
	assert.Nil(t, reg.Lookup("room-unknown"))
	assert.False(t, reg.Has("room-unknown"))
}

func TestUnregisterIdempotent(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.Register(&fakeSession{callID: "room-1"}))

	reg.Unregister("room-1")
	assert.False(t, reg.Has("room-1"))

	// Second unregister is a no-op.
	reg.Unregister("room-1")
	assert.Equal(t, 0, reg.Count())
}

func TestConcurrentRegisterDistinctCalls(t *testing.T) {
	reg := registry.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := reg.Register(&fakeSession{callID: fmt.Sprintf("room-%d", n)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, reg.Count())
}
