// Package presence maps user ids to the connection currently registered for
// them. The latest registration for a user wins.
package presence

import "sync"

type Registry[H comparable] struct {
	mu       sync.RWMutex
	byUser   map[string]H
	byHandle map[H]string
}

func NewRegistry[H comparable]() *Registry[H] {
	return &Registry[H]{
		byUser:   make(map[string]H),
		byHandle: make(map[H]string),
	}
}

// Register binds userId to h, replacing any earlier binding for either side.
func (r *Registry[H]) Register(userId string, h H) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevUser, ok := r.byHandle[h]; ok && prevUser != userId {
		delete(r.byUser, prevUser)
	}
	if prev, ok := r.byUser[userId]; ok && prev != h {
		delete(r.byHandle, prev)
	}

	r.byUser[userId] = h
	r.byHandle[h] = userId
}

func (r *Registry[H]) Resolve(userId string) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byUser[userId]
	return h, ok
}

// Unregister removes h. A user re-registered on another handle keeps that
// newer binding.
func (r *Registry[H]) Unregister(h H) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userId, ok := r.byHandle[h]
	if !ok {
		return
	}

	delete(r.byHandle, h)
	if cur, ok := r.byUser[userId]; ok && cur == h {
		delete(r.byUser, userId)
	}
}

func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
