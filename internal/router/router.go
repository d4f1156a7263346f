// Package router delivers realtime events to connections. Connections join
// per-room broadcast groups, and users are reachable directly through the
// presence registry.
package router

import (
	"sync"

	"github.com/npezzotti/blend/internal/presence"
	"github.com/npezzotti/blend/internal/types"
	"github.com/rs/zerolog"
)

// Conn is a live realtime connection. Send must not block; it reports
// whether the event was queued. Close is idempotent and Closed reports
// whether it has been called.
type Conn interface {
	Id() string
	UserId() string
	Send(ev *types.Event) bool
	Close()
	Closed() bool
}

type Router struct {
	log      zerolog.Logger
	presence *presence.Registry[Conn]

	mu          sync.RWMutex
	groups      map[string]map[Conn]struct{}
	memberships map[Conn]map[string]struct{}
}

func New(logger zerolog.Logger, reg *presence.Registry[Conn]) *Router {
	return &Router{
		log:         logger,
		presence:    reg,
		groups:      make(map[string]map[Conn]struct{}),
		memberships: make(map[Conn]map[string]struct{}),
	}
}

// Register makes c the directly addressable connection for userId.
func (r *Router) Register(userId string, c Conn) {
	r.presence.Register(userId, c)
	r.log.Debug().Str("user_id", userId).Str("conn_id", c.Id()).Msg("registered user")
}

// JoinGroup adds c to the room's group. A closed connection is never added,
// so a join that runs after Disconnect cannot resurrect it.
func (r *Router) JoinGroup(c Conn, roomId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.Closed() {
		return false
	}

	if r.groups[roomId] == nil {
		r.groups[roomId] = make(map[Conn]struct{})
	}
	r.groups[roomId][c] = struct{}{}

	if r.memberships[c] == nil {
		r.memberships[c] = make(map[string]struct{})
	}
	r.memberships[c][roomId] = struct{}{}
	return true
}

func (r *Router) LeaveGroup(c Conn, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, roomId)
}

func (r *Router) leaveLocked(c Conn, roomId string) {
	if members, ok := r.groups[roomId]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.groups, roomId)
		}
	}

	if rooms, ok := r.memberships[c]; ok {
		delete(rooms, roomId)
		if len(rooms) == 0 {
			delete(r.memberships, c)
		}
	}
}

// RemoveUserFromGroup drops every connection of userId from the room's group.
func (r *Router) RemoveUserFromGroup(roomId, userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.groups[roomId] {
		if c.UserId() == userId {
			r.leaveLocked(c, roomId)
		}
	}
}

// Broadcast sends ev to every connection in the room's group except skip,
// which may be nil. It returns the number of connections the event was
// queued on.
func (r *Router) Broadcast(roomId string, ev *types.Event, skip Conn) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for c := range r.groups[roomId] {
		if skip != nil && c == skip {
			continue
		}

		if c.Send(ev) {
			sent++
		} else {
			r.log.Warn().Str("conn_id", c.Id()).Str("room_id", roomId).Str("event", ev.Name).Msg("dropped event for slow connection")
		}
	}

	return sent
}

// CloseGroup sends ev to all members and then dissolves the group.
func (r *Router) CloseGroup(roomId string, ev *types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.groups[roomId] {
		if ev != nil {
			c.Send(ev)
		}
		if rooms, ok := r.memberships[c]; ok {
			delete(rooms, roomId)
			if len(rooms) == 0 {
				delete(r.memberships, c)
			}
		}
	}

	delete(r.groups, roomId)
}

// SendToUser delivers ev to the registered connection of userId. It returns
// false if the user has no registered connection or its queue is full.
func (r *Router) SendToUser(userId string, ev *types.Event) bool {
	c, ok := r.presence.Resolve(userId)
	if !ok {
		return false
	}

	return c.Send(ev)
}

// UserInGroup reports whether any connection of userId is in the room's group.
func (r *Router) UserInGroup(roomId, userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for c := range r.groups[roomId] {
		if c.UserId() == userId {
			return true
		}
	}
	return false
}

// Groups returns the rooms c currently belongs to.
func (r *Router) Groups(c Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.memberships[c]))
	for roomId := range r.memberships[c] {
		rooms = append(rooms, roomId)
	}
	return rooms
}

func (r *Router) GroupSize(roomId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[roomId])
}

// Disconnect closes c and removes it from every group and from the presence
// registry.
func (r *Router) Disconnect(c Conn) {
	r.mu.Lock()
	c.Close()
	for roomId := range r.memberships[c] {
		if members, ok := r.groups[roomId]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(r.groups, roomId)
			}
		}
	}
	delete(r.memberships, c)
	r.mu.Unlock()

	r.presence.Unregister(c)
}
