package coverage

import (
	"sync"
	"time"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/tree"
)

// session binds one reviewer session to the document it is looking at.
type session struct {
	documentID string
	registry   *Registry
	lastSeen   time.Time
}

// Store maps review sessions to their coverage registries. A registry is
// created when a session first loads a document, kept across refetches of
// that same document, and replaced when the session moves to a different
// document.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore returns a store that forgets sessions idle for longer than ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Bind returns the registry for sessionID viewing documentID. If the session
// was bound to another document, or to none, a fresh registry is initialized
// from doc. Otherwise the existing registry is rebound to doc so unmapped
// data reflects the latest fetch, and its marks are kept.
func (s *Store) Bind(sessionID, documentID string, doc tree.Value, allow []docpath.Path) (reg *Registry, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[sessionID]; ok && sess.documentID == documentID {
		sess.lastSeen = now
		sess.registry.Rebind(doc)
		return sess.registry, false
	}
	reg = New(doc, allow)
	s.sessions[sessionID] = &session{documentID: documentID, registry: reg, lastSeen: now}
	return reg, true
}

// Lookup returns the registry bound to sessionID for documentID. An unknown
// session, or one bound to another document, yields an uninitialized
// registry so callers can still report "nothing rendered yet".
func (s *Store) Lookup(sessionID, documentID string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.documentID != documentID {
		return &Registry{}
	}
	sess.lastSeen = s.now()
	return sess.registry
}

// Dispose forgets sessionID, as on navigation away from the document.
func (s *Store) Dispose(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes idle sessions.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
