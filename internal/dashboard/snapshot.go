package dashboard

import (
	"time"

	"github.com/contentforge/admin-console/internal/analytics"
)

// DefaultRefreshInterval is how often the dashboard refetches the overview.
const DefaultRefreshInterval = 30 * time.Second

// Snapshot is the last known platform overview. A failed refresh keeps
// Stats and records Error.
type Snapshot struct {
	Stats           *analytics.Overview `json:"stats"`
	LastUpdated     time.Time           `json:"lastUpdated"`
	LastAttempt     time.Time           `json:"lastAttempt"`
	Error           string              `json:"error,omitempty"`
	RefreshInterval time.Duration       `json:"refreshInterval"`
	AutoRefresh     bool                `json:"autoRefresh"`
}

// NewSnapshot is the state before the first fetch.
func NewSnapshot(interval time.Duration) Snapshot {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return Snapshot{RefreshInterval: interval, AutoRefresh: true}
}

// Fresh reports whether the last attempt is younger than the interval.
// Failed attempts count so an outage is not refetched on every request.
func (s Snapshot) Fresh(now time.Time) bool {
	if s.LastAttempt.IsZero() {
		return false
	}
	return now.Sub(s.LastAttempt) < s.RefreshInterval
}

// Loaded reports whether stats were ever fetched.
func (s Snapshot) Loaded() bool {
	return s.Stats != nil
}

// Age is the time since the last successful fetch.
func (s Snapshot) Age(now time.Time) time.Duration {
	if s.LastUpdated.IsZero() {
		return 0
	}
	return now.Sub(s.LastUpdated)
}

// IntervalMillis is the refresh interval for the page script.
func (s Snapshot) IntervalMillis() int64 {
	return s.RefreshInterval.Milliseconds()
}
