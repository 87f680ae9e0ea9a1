package session

import (
	"sync"
	"time"

	"github.com/hireflow/hireflow/internal/models"
)

// Manager owns all live sessions. It is the only place session objects
// are created or looked up; there is no package-level session state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    CodeStore
}

func NewManager(store CodeStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
	}
}

// Create builds a new session around an already-shuffled test. The id is
// generated by the caller because the shuffle seed derives from it.
func (m *Manager) Create(id, token string, preview bool, inv *models.Invitation, test *models.Test, seed uint64) *Session {
	sess := newSession(id, token, preview, inv, test, seed, m.store, time.Now())

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return sess
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Active returns a snapshot of sessions still accepting activity.
func (m *Manager) Active() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		if sess.Active() {
			out = append(out, sess)
		}
	}
	return out
}

// Snapshot returns every held session, live or finished.
func (m *Manager) Snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Remove drops a finished session from the manager.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
