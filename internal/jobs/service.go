package jobs

import (
	"context"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/contentforge/admin-console/internal/backend"
)

// API is the subset of the backend client used here.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, payload, out any) error
	Delete(ctx context.Context, path string, payload, out any) error
}

// Service wraps the admin job endpoints.
type Service struct {
	api API
}

// NewService constructs a Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

const basePath = "/admin/jobs"

func jobPath(id string, suffix ...string) string {
	p := basePath + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// List fetches one page of jobs.
func (s *Service) List(ctx context.Context, query url.Values) (backend.Page[Job], error) {
	var page backend.Page[Job]
	err := s.api.Get(ctx, basePath, query, &page)
	return page, err
}

// Stats fetches the queue summary.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.api.Get(ctx, basePath+"/stats", nil, &stats)
	return stats, err
}

// Overview is a job page together with the queue summary.
type Overview struct {
	Page     backend.Page[Job]
	Stats    *Stats
	StatsErr error
}

// Overview loads the list and the stats concurrently. A stats failure is
// reported in the result and does not fail the list.
func (s *Service) Overview(ctx context.Context, query url.Values) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.List(gctx, query)
		out.Page = page
		return err
	})
	g.Go(func() error {
		stats, err := s.Stats(gctx)
		if err != nil {
			out.StatsErr = err
			return nil
		}
		out.Stats = &stats
		return nil
	})
	err := g.Wait()
	return out, err
}

// Get fetches one job.
func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	var job Job
	err := s.api.Get(ctx, jobPath(id), nil, &job)
	return job, err
}

// Retry queues a failed job again.
func (s *Service) Retry(ctx context.Context, id string) error {
	return s.api.Post(ctx, jobPath(id, "retry"), nil, nil)
}

// Cancel stops a pending or running job.
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.api.Post(ctx, jobPath(id, "cancel"), nil, nil)
}

// Delete removes a job record.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, jobPath(id), nil, nil)
}

// Bulk applies one action to many jobs.
func (s *Service) Bulk(ctx context.Context, ids []string, action string) error {
	return s.api.Post(ctx, basePath+"/bulk", map[string]any{"jobIds": ids, "action": action}, nil)
}
