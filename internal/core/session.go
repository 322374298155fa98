package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/frameview/internal/catalog"
)

// ErrSessionNotFound is returned for unknown or evicted session IDs.
var ErrSessionNotFound = errors.New("session not found")

// DefaultMaxSessions bounds the session store when no limit is configured.
const DefaultMaxSessions = 32

// SourceKind identifies where a session's catalog came from.
type SourceKind string

const (
	SourceFile     SourceKind = "file"
	SourceUpload   SourceKind = "upload"
	SourcePostgres SourceKind = "postgres"
	SourceMySQL    SourceKind = "mysql"
)

// Session is the result of one load. A failed load still yields a session:
// its Catalog is empty and Err holds the cause.
type Session struct {
	ID       uuid.UUID
	Kind     SourceKind
	Label    string
	Catalog  *catalog.Catalog
	Err      error
	Cached   bool
	LoadedAt time.Time
	Duration time.Duration

	// Pinned sessions (the default source, database sources) are never
	// evicted and do not count toward the session limit.
	Pinned bool
}

// OK reports whether the load succeeded.
func (s *Session) OK() bool {
	return s.Err == nil
}

// Message maps the load error for display. Zero for successful loads.
func (s *Session) Message() UserMessage {
	return MapError(s.Err)
}

// SessionStatus is the JSON form of a session.
type SessionStatus struct {
	ID         string       `json:"id"`
	Kind       SourceKind   `json:"kind"`
	Label      string       `json:"label"`
	OK         bool         `json:"ok"`
	Datasets   int          `json:"datasets"`
	Names      []string     `json:"names"`
	Cached     bool         `json:"cached"`
	Pinned     bool         `json:"pinned"`
	LoadedAt   time.Time    `json:"loaded_at"`
	DurationMs int64        `json:"duration_ms"`
	Error      *UserMessage `json:"error,omitempty"`
}

// Status summarizes the session.
func (s *Session) Status() SessionStatus {
	st := SessionStatus{
		ID:         s.ID.String(),
		Kind:       s.Kind,
		Label:      s.Label,
		OK:         s.OK(),
		Datasets:   s.Catalog.Len(),
		Names:      s.Catalog.Names(),
		Cached:     s.Cached,
		Pinned:     s.Pinned,
		LoadedAt:   s.LoadedAt,
		DurationMs: s.Duration.Milliseconds(),
	}
	if s.Err != nil {
		msg := s.Message()
		st.Error = &msg
	}
	return st
}

// sessionStore keeps the newest sessions, evicting the oldest unpinned
// session when full.
type sessionStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*Session
	order    []uuid.UUID
	max      int
	unpinned int
}

func newSessionStore(max int) *sessionStore {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &sessionStore{
		byID: make(map[uuid.UUID]*Session),
		max:  max,
	}
}

func (st *sessionStore) add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !s.Pinned {
		for st.unpinned >= st.max {
			st.evictOldest()
		}
		st.unpinned++
	}
	st.byID[s.ID] = s
	st.order = append(st.order, s.ID)
}

// evictOldest drops the oldest unpinned session. Callers hold mu.
func (st *sessionStore) evictOldest() {
	for i, id := range st.order {
		if st.byID[id].Pinned {
			continue
		}
		st.order = append(st.order[:i], st.order[i+1:]...)
		delete(st.byID, id)
		st.unpinned--
		return
	}
}

func (st *sessionStore) get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.byID[id]
	return s, ok
}

// list returns sessions newest first.
func (st *sessionStore) list() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*Session, 0, len(st.order))
	for i := len(st.order) - 1; i >= 0; i-- {
		out = append(out, st.byID[st.order[i]])
	}
	return out
}

// parseSessionID accepts the textual uuid form used in URLs.
func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrSessionNotFound, raw)
	}
	return id, nil
}
