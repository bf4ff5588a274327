// Package session implements spec §4.5: short opaque session IDs with a
// TTL, used to attribute writes and compute sync diffs.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kgraph-ai/kgraph/internal/kgerrors"
)

// idLength is the length of a registered session ID, per spec §4.5's
// "opaque 8-character strings".
const idLength = 8

// entry is one registered session's bookkeeping.
type entry struct {
	startTS    time.Time
	projectKey string // empty for a session with no associated project
}

// Manager tracks registered sessions and their start times. It is not
// safe for zero-value use; construct with New. Callers are expected to
// hold their own lock around Manager when composing it into a larger
// critical section (internal/store does exactly that), so Manager's own
// mutex exists for safety under direct/standalone use and tests, not as
// the store's sole serialization point.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]entry // id -> entry
	now      func() time.Time
}

// New creates a session manager with the given TTL.
func New(ttl time.Duration) *Manager {
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Register mints a new session ID with no associated project and records
// its start time. Collisions are astronomically unlikely (a UUIDv4
// truncated to 8 hex characters still draws from a 2^32 space) but are
// defended against by retrying.
func (m *Manager) Register() (id string, startTS time.Time) {
	return m.RegisterWithProject("")
}

// RegisterWithProject is Register, additionally recording projectKey so
// later project-level calls on this session resolve to the right graph
// (spec §9's "lazy-loaded on first reference by a session whose
// project_path is set"). An empty projectKey behaves exactly like Register.
func (m *Manager) RegisterWithProject(projectKey string) (id string, startTS time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for {
		candidate := newShortID()
		if _, exists := m.sessions[candidate]; !exists {
			m.sessions[candidate] = entry{startTS: now, projectKey: projectKey}
			return candidate, now
		}
	}
}

// StartTS returns the registration time for id, or kgerrors.ErrUnknownSession
// if id was never registered or has since expired. Expiry is checked lazily
// here, not just in Cleanup, so a session used between two maintenance
// ticks still reports as unknown once past its TTL.
func (m *Manager) StartTS(id string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return time.Time{}, kgerrors.ErrUnknownSession
	}
	if m.now().Sub(e.startTS) > m.ttl {
		delete(m.sessions, id)
		return time.Time{}, kgerrors.ErrUnknownSession
	}
	return e.startTS, nil
}

// ProjectKey returns the project key a session registered with, or
// kgerrors.ErrUnknownSession under the same expiry rule as StartTS. The key
// may be "" for a session that never set one.
func (m *Manager) ProjectKey(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return "", kgerrors.ErrUnknownSession
	}
	if m.now().Sub(e.startTS) > m.ttl {
		delete(m.sessions, id)
		return "", kgerrors.ErrUnknownSession
	}
	return e.projectKey, nil
}

// Cleanup discards every session whose start time is older than the TTL.
// It returns the number of sessions discarded.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	discarded := 0
	for id, e := range m.sessions {
		if now.Sub(e.startTS) > m.ttl {
			delete(m.sessions, id)
			discarded++
		}
	}
	return discarded
}

// Count returns the number of currently registered (not-yet-expired, by
// last Cleanup) sessions, for ping's liveness payload.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func newShortID() string {
	full := uuid.NewString()
	return strings.ReplaceAll(full, "-", "")[:idLength]
}
