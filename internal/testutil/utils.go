package testutil

import (
	"sync"
	"testing"

	"github.com/npezzotti/blend/internal/types"
	"github.com/rs/zerolog"
)

func TestLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
}

// FakeConn records the events queued on it.
type FakeConn struct {
	id     string
	userId string

	mu     sync.Mutex
	events []*types.Event
	full   bool
	closed bool
}

func NewFakeConn(id, userId string) *FakeConn {
	return &FakeConn{id: id, userId: userId}
}

func (c *FakeConn) Id() string     { return c.id }
func (c *FakeConn) UserId() string { return c.userId }

func (c *FakeConn) Send(ev *types.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.full {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetFull makes subsequent sends fail as if the outbound queue were full.
func (c *FakeConn) SetFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

func (c *FakeConn) Events() []*types.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Event(nil), c.events...)
}

func (c *FakeConn) EventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.events))
	for i, ev := range c.events {
		names[i] = ev.Name
	}
	return names
}

// EventsNamed returns the recorded events with the given name in order.
func (c *FakeConn) EventsNamed(name string) []*types.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*types.Event
	for _, ev := range c.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
