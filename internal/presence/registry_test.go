package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type handle struct{ id int }

func TestRegistryLatestRegistrationWins(t *testing.T) {
	r := NewRegistry[*handle]()
	first, second := &handle{1}, &handle{2}

	r.Register("alice", first)
	r.Register("alice", second)

	got, ok := r.Resolve("alice")
	assert.True(t, ok)
	assert.Same(t, second, got)

	r.Unregister(first)
	got, ok = r.Resolve("alice")
	assert.True(t, ok, "unregistering a stale handle keeps the newer binding")
	assert.Same(t, second, got)

	r.Unregister(second)
	_, ok = r.Resolve("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryHandleMovesBetweenUsers(t *testing.T) {
	r := NewRegistry[*handle]()
	h := &handle{1}

	r.Register("alice", h)
	r.Register("bob", h)

	_, ok := r.Resolve("alice")
	assert.False(t, ok)

	got, ok := r.Resolve("bob")
	assert.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryUnknownHandle(t *testing.T) {
	r := NewRegistry[*handle]()
	r.Unregister(&handle{1})

	_, ok := r.Resolve("nobody")
	assert.False(t, ok)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry[*handle]()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := &handle{i}
			user := fmt.Sprintf("user-%d", i%5)
			r.Register(user, h)
			r.Resolve(user)
			r.Unregister(h)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
