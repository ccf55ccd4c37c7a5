package main

import (
	"sync"
)

// Session is one live real-time connection tracked by the Registry.
// Send reports whether the event was accepted (false once the peer is gone).
type Session interface {
	ID() string
	Send(ev ServerEvent) bool
	Kick(reason string)
}

// Registry owns every live session, its room memberships and the privileged
// observer set. Rooms are not first-class: a room exists only as the set of
// sessions that joined its name. All mutation funnels through these methods
// under one lock; readers get snapshot copies so fan-out loops never iterate
// a map that a disconnect is mutating.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]Session
	rooms     map[string]map[string]Session
	joined    map[string]map[string]struct{}
	observers map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]Session),
		rooms:     make(map[string]map[string]Session),
		joined:    make(map[string]map[string]struct{}),
		observers: make(map[string]Session),
	}
}

func (g *Registry) Register(s Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.ID()] = s
}

// Unregister removes the session from every room it joined and from the
// observer set in one critical section. Unknown sessions are ignored.
func (g *Registry) Unregister(s Session) {
	id := s.ID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[id]; !ok {
		return
	}
	delete(g.sessions, id)
	for room := range g.joined[id] {
		delete(g.rooms[room], id)
		if len(g.rooms[room]) == 0 {
			delete(g.rooms, room)
		}
	}
	delete(g.joined, id)
	delete(g.observers, id)
}

// JoinRoom is idempotent; joining twice leaves a single membership.
// Operations on unregistered sessions are silently ignored.
func (g *Registry) JoinRoom(s Session, room string) {
	id := s.ID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[id]; !ok {
		return
	}
	if g.rooms[room] == nil {
		g.rooms[room] = make(map[string]Session)
	}
	g.rooms[room][id] = s
	if g.joined[id] == nil {
		g.joined[id] = make(map[string]struct{})
	}
	g.joined[id][room] = struct{}{}
}

// LeaveRoom is idempotent; leaving a room never joined is a no-op.
func (g *Registry) LeaveRoom(s Session, room string) {
	id := s.ID()
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.joined[id], room)
	delete(g.rooms[room], id)
	if len(g.rooms[room]) == 0 {
		delete(g.rooms, room)
	}
}

// MembersOf returns a snapshot of the sessions joined to room.
func (g *Registry) MembersOf(room string) []Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Session, 0, len(g.rooms[room]))
	for _, s := range g.rooms[room] {
		out = append(out, s)
	}
	return out
}

// AllSessions returns a snapshot of every registered session.
func (g *Registry) AllSessions() []Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		out = append(out, s)
	}
	return out
}

// Promote adds a registered session to the observer set. Idempotent.
func (g *Registry) Promote(s Session) {
	id := s.ID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[id]; !ok {
		return
	}
	g.observers[id] = s
}

// Demote removes a session from the observer set. Idempotent; also called
// implicitly by Unregister.
func (g *Registry) Demote(s Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.observers, s.ID())
}

// IsObserver reports observer membership.
func (g *Registry) IsObserver(s Session) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.observers[s.ID()]
	return ok
}

// Observers returns a snapshot of the observer set.
func (g *Registry) Observers() []Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Session, 0, len(g.observers))
	for _, s := range g.observers {
		out = append(out, s)
	}
	return out
}

// Stats returns current room and session counts for the health endpoint.
func (g *Registry) Stats() (rooms, sessions int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms), len(g.sessions)
}
