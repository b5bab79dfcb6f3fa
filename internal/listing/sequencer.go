package listing

import (
	"sync"
	"time"
)

// Ticket identifies one fetch of a list page.
type Ticket struct {
	Key string
	Seq uint64
}

// Sequencer numbers list fetches per operator and page. A completion whose
// number is older than the latest issued one is discarded, so an earlier
// response arriving late cannot overwrite a newer page state. Idle keys are
// reclaimed by Sweep.
type Sequencer[T any] struct {
	mu      sync.Mutex
	issued  map[string]uint64
	applied map[string]uint64
	states  map[string]T
	touched map[string]time.Time
}

// NewSequencer constructs an empty Sequencer.
func NewSequencer[T any]() *Sequencer[T] {
	return &Sequencer[T]{
		issued:  make(map[string]uint64),
		applied: make(map[string]uint64),
		states:  make(map[string]T),
		touched: make(map[string]time.Time),
	}
}

// Key combines the operator session and the page name.
func Key(sessionID, page string) string {
	return sessionID + "|" + page
}

// Begin issues the next ticket for key.
func (s *Sequencer[T]) Begin(key string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[key]++
	s.touched[key] = time.Now()
	return Ticket{Key: key, Seq: s.issued[key]}
}

// Complete stores state unless a newer fetch was issued since the ticket.
func (s *Sequencer[T]) Complete(t Ticket, state T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Seq != s.issued[t.Key] || t.Seq <= s.applied[t.Key] {
		return false
	}
	s.applied[t.Key] = t.Seq
	s.states[t.Key] = state
	return true
}

// Newer returns the applied state when it comes from a fetch issued after t.
func (s *Sequencer[T]) Newer(t Ticket) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied[t.Key] <= t.Seq {
		var zero T
		return zero, false
	}
	state, ok := s.states[t.Key]
	return state, ok
}

// Latest returns the state of the newest applied fetch.
func (s *Sequencer[T]) Latest(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[key]
	return state, ok
}

// Forget drops everything kept for key.
func (s *Sequencer[T]) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgetLocked(key)
}

// Sweep drops keys with no fetch since cutoff and reports how many went.
func (s *Sequencer[T]) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for key, at := range s.touched {
		if at.Before(cutoff) {
			s.forgetLocked(key)
			dropped++
		}
	}
	return dropped
}

// Len reports how many keys are tracked.
func (s *Sequencer[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.touched)
}

func (s *Sequencer[T]) forgetLocked(key string) {
	delete(s.issued, key)
	delete(s.applied, key)
	delete(s.states, key)
	delete(s.touched, key)
}

// Settle records the page state for t. When a newer fetch of the same page
// already completed it returns that page's URL for the caller to redirect
// to instead of rendering stale rows.
func Settle(seq *Sequencer[State], t Ticket, state State) (string, bool) {
	if seq.Complete(t, state) {
		return "", false
	}
	newer, ok := seq.Newer(t)
	if !ok || newer.URL == "" {
		return "", false
	}
	return newer.URL, true
}
