package dashboard

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/shared"
)

// OverviewSource fetches the platform overview.
type OverviewSource interface {
	Overview(ctx context.Context) (analytics.Overview, error)
}

// Service serves dashboard stats from the shared snapshot and refreshes it
// when stale. Concurrent refreshes made with the same bearer token collapse
// into one backend call.
type Service struct {
	source OverviewSource
	store  *Store
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService wires the service.
func NewService(source OverviewSource, store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, store: store, logger: logger, now: time.Now}
}

// WithClock overrides the clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats returns the snapshot, refreshing it first when stale. The error is
// the refresh failure, if any; the snapshot still carries the last stats.
func (s *Service) Stats(ctx context.Context) (Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("dashboard snapshot unavailable", slog.Any("error", err))
	}
	if snap.Fresh(s.now()) {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches the overview now.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, collapsed := s.group.Do(flightKey(ctx), func() (any, error) {
		return s.refresh(ctx)
	})
	if collapsed {
		s.logger.Debug("dashboard refresh shared")
	}
	return v.(Snapshot), err
}

func (s *Service) refresh(ctx context.Context) (Snapshot, error) {
	snap, loadErr := s.store.Load(ctx)
	if loadErr != nil {
		s.logger.Warn("dashboard snapshot unavailable", slog.Any("error", loadErr))
	}
	now := s.now().UTC()
	stats, err := s.source.Overview(ctx)
	if errors.Is(err, shared.ErrSessionExpired) {
		// A rejected operator token says nothing about the platform.
		return snap, err
	}
	snap.LastAttempt = now
	if err != nil {
		snap.Error = shared.UserSafeMessage(err)
		s.logger.Warn("dashboard refresh failed", slog.Any("error", err), slog.Bool("stale", snap.Loaded()))
	} else {
		snap.Stats = &stats
		snap.LastUpdated = now
		snap.Error = ""
	}
	if saveErr := s.store.Save(ctx, snap); saveErr != nil {
		s.logger.Warn("dashboard snapshot not saved", slog.Any("error", saveErr))
	}
	return snap, err
}

func flightKey(ctx context.Context) string {
	token := backend.SessionToken(ctx)
	if token == "" {
		return "overview"
	}
	sum := blake2b.Sum256([]byte(token))
	return "overview:" + hex.EncodeToString(sum[:8])
}

// SetAutoRefresh stores the auto refresh toggle.
func (s *Service) SetAutoRefresh(ctx context.Context, on bool) (Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return snap, err
	}
	snap.AutoRefresh = on
	return snap, s.store.Save(ctx, snap)
}
