package ui

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

const (
	// MaxNotifications bounds the list; the oldest entry is evicted first.
	MaxNotifications = 50
	// AutoDismissAfter is how long success and info entries stay visible.
	AutoDismissAfter = 5 * time.Second
)

// Notification is a toast shown in the shell.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Draft is a notification before the store assigns its id and timestamp.
type Draft struct {
	Kind    Kind
	Title   string
	Message string
}

// Expires reports whether the kind removes itself after AutoDismissAfter.
func (k Kind) Expires() bool {
	return k == KindSuccess || k == KindInfo
}

// Timer is the handle returned by a deferred callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option customises a Store.
type Option func(*Store)

// WithAfterFunc replaces the timer used for auto dismissal.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Store) { s.afterFunc = fn }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps the notifications of one operator session, most recent first.
type Store struct {
	mu        sync.Mutex
	items     []Notification
	timers    map[string]Timer
	afterFunc AfterFunc
	now       func() time.Time
	touched   time.Time
}

// NewStore constructs an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		timers:    make(map[string]Timer),
		afterFunc: stdAfterFunc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.touched = s.now()
	return s
}

// Add assigns an id and timestamp, prepends the entry and evicts past the cap.
func (s *Store) Add(d Draft) Notification {
	if d.Kind == "" {
		d.Kind = KindInfo
	}
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      d.Kind,
		Title:     d.Title,
		Message:   d.Message,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = n.Timestamp
	s.items = append([]Notification{n}, s.items...)
	for len(s.items) > MaxNotifications {
		evicted := s.items[len(s.items)-1]
		s.items = s.items[:len(s.items)-1]
		s.stopTimerLocked(evicted.ID)
	}
	if n.Kind.Expires() {
		id := n.ID
		s.timers[id] = s.afterFunc(AutoDismissAfter, func() { s.Remove(id) })
	}
	return n
}

// Remove deletes the entry. Removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked(id)
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// MarkRead flips the read flag in place.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return
		}
	}
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.stopTimerLocked(id)
	}
	s.items = nil
}

// List returns a copy of the entries, most recent first.
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Unread counts entries not yet read.
func (s *Store) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// Stop cancels every pending auto dismissal.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.stopTimerLocked(id)
	}
}

func (s *Store) stopTimerLocked(id string) {
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Store) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Registry holds one Store per operator session.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	opts   []Option
}

// NewRegistry constructs a Registry whose stores use opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{stores: make(map[string]*Store), opts: opts}
}

// For returns the store of the session, creating it on first use.
func (r *Registry) For(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[sessionID]
	if !ok {
		store = NewStore(r.opts...)
		r.stores[sessionID] = store
	}
	return store
}

// Move carries notifications over when a session id is rotated.
func (r *Registry) Move(from, to string) {
	if from == to || from == "" || to == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.stores[from]; ok {
		delete(r.stores, from)
		r.stores[to] = store
	}
}

// Drop discards the store of a session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	store, ok := r.stores[sessionID]
	delete(r.stores, sessionID)
	r.mu.Unlock()
	if ok {
		store.Stop()
	}
}

// Sweep drops stores that saw no new notification since the cutoff.
func (r *Registry) Sweep(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, store := range r.stores {
		if store.idleSince().Before(cutoff) {
			store.Stop()
			delete(r.stores, id)
			dropped++
		}
	}
	return dropped
}

// Len reports how many sessions hold a store.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Stop cancels every pending timer.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, store := range r.stores {
		store.Stop()
	}
}
