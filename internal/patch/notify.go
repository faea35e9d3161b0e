package patch

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Status is the lifecycle state of a submitted edit.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusApplying Status = "applying"
	StatusApplied  Status = "applied"
	StatusFailed   Status = "failed"
)

// Notification reports an edit's outcome to the session that made it.
type Notification struct {
	ID         string    `json:"id"`
	Session    string    `json:"-"`
	StudyID    string    `json:"study_id"`
	Path       string    `json:"path"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Done reports whether the edit has finished, successfully or not.
func (n Notification) Done() bool {
	return n.Status == StatusApplied || n.Status == StatusFailed
}

// Notifications is a thread-safe in-memory notification registry with TTL
// eviction.
type Notifications struct {
	mu    sync.Mutex
	items map[string]*Notification
	ttl   time.Duration
	now   func() time.Time
}

func NewNotifications(ttl time.Duration) *Notifications {
	return &Notifications{
		items: make(map[string]*Notification),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *Notifications) put(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n.CreatedAt, n.UpdatedAt = now, now
	s.items[n.ID] = &n
}

// update applies fn to a stored notification and returns the result. It is a
// no-op once the notification has been dismissed.
func (s *Notifications) update(id string, fn func(*Notification)) (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return Notification{}, false
	}
	fn(n)
	n.UpdatedAt = s.now()
	return *n, true
}

func (s *Notifications) Get(id string) (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return Notification{}, false
	}
	return *n, true
}

// List returns a session's notifications, oldest first.
func (s *Notifications) List(session string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Notification{}
	for _, n := range s.items {
		if n.Session == session {
			out = append(out, *n)
		}
	}
	slices.SortFunc(out, func(a, b Notification) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Dismiss removes one notification owned by session.
func (s *Notifications) Dismiss(session, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.Session != session {
		return false
	}
	delete(s.items, id)
	return true
}

// Cleanup removes finished notifications not updated within the TTL.
func (s *Notifications) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, n := range s.items {
		if n.Done() && now.Sub(n.UpdatedAt) > s.ttl {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}
