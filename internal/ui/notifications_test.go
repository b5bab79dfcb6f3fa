package ui

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeScheduler struct {
	timers []*fakeTimer
	delays []time.Duration
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	timer := &fakeTimer{fn: f}
	s.timers = append(s.timers, timer)
	s.delays = append(s.delays, d)
	return timer
}

// fire runs a callback the way time.AfterFunc would, even if it was stopped
// too late to prevent it.
func (s *fakeScheduler) fire(i int) {
	s.timers[i].fn()
}

type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newTestStore() (*Store, *fakeScheduler) {
	sched := &fakeScheduler{}
	clock := &tickingClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStore(WithAfterFunc(sched.AfterFunc), WithClock(clock.Now)), sched
}

func TestAddPrependsAndAssignsIdentity(t *testing.T) {
	store, _ := newTestStore()
	first := store.Add(Draft{Kind: KindError, Title: "one"})
	second := store.Add(Draft{Kind: KindWarning, Title: "two"})

	require.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.Timestamp.After(first.Timestamp))
	assert.False(t, second.Read)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Title)
	assert.Equal(t, "one", list[1].Title)
}

func TestCapEvictsOldest(t *testing.T) {
	store, _ := newTestStore()
	var oldest Notification
	for i := 0; i < MaxNotifications; i++ {
		n := store.Add(Draft{Kind: KindError, Title: fmt.Sprintf("n%d", i)})
		if i == 0 {
			oldest = n
		}
	}
	require.Len(t, store.List(), MaxNotifications)

	store.Add(Draft{Kind: KindError, Title: "overflow"})
	list := store.List()
	require.Len(t, list, MaxNotifications)
	assert.Equal(t, "overflow", list[0].Title)
	for _, n := range list {
		assert.NotEqual(t, oldest.ID, n.ID)
		assert.False(t, n.Timestamp.Before(oldest.Timestamp))
	}
	assert.Equal(t, "n1", list[len(list)-1].Title)
}

func TestSuccessExpiresAfterTimeout(t *testing.T) {
	store, sched := newTestStore()
	n := store.Add(Draft{Kind: KindSuccess, Title: "saved"})
	store.Add(Draft{Kind: KindError, Title: "kept"})

	require.Len(t, sched.timers, 1)
	assert.Equal(t, AutoDismissAfter, sched.delays[0])

	sched.fire(0)
	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].Title)
	assert.NotEqual(t, n.ID, list[0].ID)
}

func TestDismissBeforeTimeoutIsIdempotent(t *testing.T) {
	store, sched := newTestStore()
	n := store.Add(Draft{Kind: KindInfo, Title: "fyi"})
	other := store.Add(Draft{Kind: KindWarning, Title: "other"})

	store.Remove(n.ID)
	assert.True(t, sched.timers[0].stopped)
	assert.NotPanics(t, func() { sched.fire(0) })
	assert.NotPanics(t, func() { store.Remove(n.ID) })

	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
}

func TestErrorsAndWarningsPersist(t *testing.T) {
	store, sched := newTestStore()
	store.Add(Draft{Kind: KindError})
	store.Add(Draft{Kind: KindWarning})
	assert.Empty(t, sched.timers)
	assert.Len(t, store.List(), 2)
}

func TestMarkReadKeepsOrder(t *testing.T) {
	store, _ := newTestStore()
	a := store.Add(Draft{Kind: KindError, Title: "a"})
	store.Add(Draft{Kind: KindError, Title: "b"})
	assert.Equal(t, 2, store.Unread())

	store.MarkRead(a.ID)
	store.MarkRead("missing")
	list := store.List()
	assert.Equal(t, "b", list[0].Title)
	assert.Equal(t, "a", list[1].Title)
	assert.True(t, list[1].Read)
	assert.Equal(t, 1, store.Unread())
}

func TestClearStopsTimers(t *testing.T) {
	store, sched := newTestStore()
	store.Add(Draft{Kind: KindSuccess})
	store.Add(Draft{Kind: KindInfo})
	store.Clear()
	assert.Empty(t, store.List())
	for _, timer := range sched.timers {
		assert.True(t, timer.stopped)
	}
}

func TestRegistryIsolatesSessions(t *testing.T) {
	sched := &fakeScheduler{}
	registry := NewRegistry(WithAfterFunc(sched.AfterFunc))
	registry.For("s1").Add(Draft{Kind: KindError, Title: "for s1"})

	assert.Empty(t, registry.For("s2").List())
	assert.Len(t, registry.For("s1").List(), 1)
	assert.Same(t, registry.For("s1"), registry.For("s1"))

	registry.Move("s1", "s3")
	assert.Len(t, registry.For("s3").List(), 1)
	assert.Empty(t, registry.For("s1").List())

	registry.Drop("s3")
	assert.Empty(t, registry.For("s3").List())
}

func TestRegistrySweep(t *testing.T) {
	clock := &tickingClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	registry := NewRegistry(WithClock(clock.Now), WithAfterFunc((&fakeScheduler{}).AfterFunc))
	registry.For("old")
	cutoff := clock.Now()
	registry.For("new")

	assert.Equal(t, 1, registry.Sweep(cutoff))
	assert.Equal(t, 1, registry.Len())
}
