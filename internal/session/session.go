package session

import (
	"sync"
	"time"

	"github.com/Nazarovdf/saverbot/internal/platform"
)

// Session is the per-user download state. Values are never mutated after
// they are stored; every change installs a new value through Store.
type Session struct {
	UserID        int64
	Platform      platform.Platform
	ArtifactPath  string
	ContainerPath string
	SourceURL     string
	Title         string
	QualityMap    map[string]string
	Caption       string
	CreatedAt     time.Time
}

// Placeholder marks an attempt in flight; it owns no files.
func Placeholder(userID int64, p platform.Platform, now time.Time) *Session {
	return &Session{UserID: userID, Platform: p, CreatedAt: now}
}

// Paths lists every on-disk path the session owns.
func (s *Session) Paths() []string {
	if s == nil {
		return nil
	}
	var out []string
	if s.ArtifactPath != "" {
		out = append(out, s.ArtifactPath)
	}
	if s.ContainerPath != "" {
		out = append(out, s.ContainerPath)
	}
	return out
}

func (s *Session) HasArtifact() bool {
	return s != nil && s.ArtifactPath != ""
}

// PendingProbe reports whether a YouTube quality choice is still open.
func (s *Session) PendingProbe() bool {
	return s != nil && s.SourceURL != "" && len(s.QualityMap) > 0
}

func (s *Session) Selector(label string) (string, bool) {
	if s == nil {
		return "", false
	}
	sel, ok := s.QualityMap[label]
	return sel, ok
}

// WithoutArtifacts is a copy that no longer owns any file; the caption survives.
func (s *Session) WithoutArtifacts() *Session {
	next := *s
	next.ArtifactPath = ""
	next.ContainerPath = ""
	return &next
}

// WithoutProbe is a copy with the pending quality choice dropped.
func (s *Session) WithoutProbe() *Session {
	next := *s
	next.SourceURL = ""
	next.Title = ""
	next.QualityMap = nil
	return &next
}

// Store holds at most one session per user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

func (m *Store) Get(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// Swap installs next and returns whatever it replaced. A nil next removes the entry.
func (m *Store) Swap(userID int64, next *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.sessions[userID]
	if next == nil {
		delete(m.sessions, userID)
	} else {
		m.sessions[userID] = next
	}
	return prev
}

// CompareAndSwap installs next only if the stored value is still old (by identity).
func (m *Store) CompareAndSwap(userID int64, old, next *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[userID] != old {
		return false
	}
	if next == nil {
		delete(m.sessions, userID)
	} else {
		m.sessions[userID] = next
	}
	return true
}

func (m *Store) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// LivePaths is the set of every path referenced by a stored session.
func (m *Store) LivePaths() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	live := make(map[string]struct{})
	for _, s := range m.sessions {
		for _, p := range s.Paths() {
			live[p] = struct{}{}
		}
	}
	return live
}

// Expire removes sessions created more than ttl ago and returns them so the
// caller can release their files.
func (m *Store) Expire(ttl time.Duration, now time.Time) []*Session {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []*Session
	for k, v := range m.sessions {
		if now.Sub(v.CreatedAt) > ttl {
			expired = append(expired, v)
			delete(m.sessions, k)
		}
	}
	return expired
}
