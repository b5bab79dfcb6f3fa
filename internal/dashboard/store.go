package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatsKey is the Redis key shared by the console and the worker.
const StatsKey = "dashboard:stats"

// Store persists the snapshot in Redis.
type Store struct {
	client   *redis.Client
	defaults Snapshot
}

// NewStore returns a store; defaults is returned until the first save.
func NewStore(client *redis.Client, defaults Snapshot) *Store {
	return &Store{client: client, defaults: defaults}
}

// Load returns the stored snapshot or the defaults when none exists.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	raw, err := s.client.Get(ctx, StatsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("dashboard: load snapshot: %w", err)
	}
	snap := s.defaults
	if err := json.Unmarshal(raw, &snap); err != nil {
		return s.defaults, fmt.Errorf("dashboard: decode snapshot: %w", err)
	}
	if snap.RefreshInterval <= 0 {
		snap.RefreshInterval = s.defaults.RefreshInterval
	}
	return snap, nil
}

// Save writes the snapshot without expiry.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, StatsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("dashboard: save snapshot: %w", err)
	}
	return nil
}
