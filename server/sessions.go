package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a conversation with one system. Its messages live in the
// checkpoint thread named by ID.
type Session struct {
	ID        string    `json:"id"`
	System    string    `json:"system"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     int       `json:"turns"`
}

type sessionEntry struct {
	// mu serializes turns of the session.
	mu      sync.Mutex
	session Session
}

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*sessionEntry)}
}

func newSessionID(system string) string {
	return fmt.Sprintf("%s-%s", system, uuid.NewString())
}

// systemOf extracts the system from a session id.
func systemOf(id string) (string, bool) {
	system, rest, ok := strings.Cut(id, "-")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(rest); err != nil {
		return "", false
	}
	return system, true
}

func (r *sessionRegistry) create(system string) Session {
	now := time.Now()
	s := Session{ID: newSessionID(system), System: system, CreatedAt: now, UpdatedAt: now}
	r.mu.Lock()
	r.sessions[s.ID] = &sessionEntry{session: s}
	r.mu.Unlock()
	return s
}

// entry returns the session. An unregistered id is registered again when
// restorable accepts its system, which is how sessions stored before a
// restart come back.
func (r *sessionRegistry) entry(id string, restorable func(system string) bool) *sessionEntry {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return e
	}
	system, ok := systemOf(id)
	if !ok || !restorable(system) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		return e
	}
	now := time.Now()
	e = &sessionEntry{session: Session{ID: id, System: system, CreatedAt: now, UpdatedAt: now}}
	r.sessions[id] = e
	return e
}

func (r *sessionRegistry) get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return e.session, true
}

func (r *sessionRegistry) touch(id string, turns int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.session.UpdatedAt = time.Now()
		e.session.Turns += turns
	}
}

func (r *sessionRegistry) reset(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.session.UpdatedAt = time.Now()
		e.session.Turns = 0
	}
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// list returns the sessions, newest first, optionally of one system.
func (r *sessionRegistry) list(system string) []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		if system == "" || e.session.System == system {
			out = append(out, e.session)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
