package content

import (
	"context"
	"net/url"

	"github.com/contentforge/admin-console/internal/backend"
)

// API is the subset of the backend client used here.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, payload, out any) error
	Delete(ctx context.Context, path string, payload, out any) error
}

// Service wraps the content group endpoints.
type Service struct {
	api API
}

// NewService constructs a Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

const basePath = "/admin/content-groups"

// List fetches one page of content groups.
func (s *Service) List(ctx context.Context, query url.Values) (backend.Page[Group], error) {
	var page backend.Page[Group]
	err := s.api.Get(ctx, basePath, query, &page)
	return page, err
}

// Get fetches one content group.
func (s *Service) Get(ctx context.Context, id string) (Group, error) {
	var g Group
	err := s.api.Get(ctx, basePath+"/"+url.PathEscape(id), nil, &g)
	return g, err
}

// Delete removes a content group and everything generated for it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, basePath+"/"+url.PathEscape(id), map[string]bool{"confirm": true}, nil)
}

// Bulk applies one action to many content groups.
func (s *Service) Bulk(ctx context.Context, ids []string, action string, data map[string]any) error {
	payload := map[string]any{"contentIds": ids, "action": action}
	if data != nil {
		payload["data"] = data
	}
	return s.api.Post(ctx, basePath+"/bulk", payload, nil)
}
