package users

import (
	"context"
	"net/url"

	"github.com/contentforge/admin-console/internal/backend"
)

// API is the subset of the backend client used here.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, payload, out any) error
	Put(ctx context.Context, path string, payload, out any) error
	Delete(ctx context.Context, path string, payload, out any) error
}

// Service wraps the admin user endpoints.
type Service struct {
	api API
}

// NewService constructs a Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

func userPath(id string, suffix ...string) string {
	p := "/admin/users/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// List fetches one page of users.
func (s *Service) List(ctx context.Context, query url.Values) (backend.Page[User], error) {
	var page backend.Page[User]
	err := s.api.Get(ctx, "/admin/users", query, &page)
	return page, err
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	var u User
	err := s.api.Get(ctx, userPath(id), nil, &u)
	return u, err
}

// Update saves the editable fields.
func (s *Service) Update(ctx context.Context, id string, update Update) error {
	return s.api.Put(ctx, userPath(id), update, nil)
}

// UpdateLimits replaces the plan limits.
func (s *Service) UpdateLimits(ctx context.Context, id string, limits Limits) error {
	return s.api.Put(ctx, userPath(id, "limits"), limits, nil)
}

// Suspend blocks the user, optionally recording why.
func (s *Service) Suspend(ctx context.Context, id, reason string) error {
	return s.api.Post(ctx, userPath(id, "suspend"), map[string]string{"reason": reason}, nil)
}

// Activate lifts a suspension.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.api.Post(ctx, userPath(id, "activate"), nil, nil)
}

// ResetPassword sends the user a reset email.
func (s *Service) ResetPassword(ctx context.Context, id string) error {
	return s.api.Post(ctx, userPath(id, "reset-password"), nil, nil)
}

// ResetUsage zeroes the monthly usage counters.
func (s *Service) ResetUsage(ctx context.Context, id string) error {
	return s.api.Post(ctx, userPath(id, "reset-usage"), nil, nil)
}

// Delete removes the user and their data.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, userPath(id), map[string]bool{"confirm": true}, nil)
}

// Bulk applies one action to many users.
func (s *Service) Bulk(ctx context.Context, ids []string, action string, data map[string]any) error {
	payload := map[string]any{"userIds": ids, "action": action}
	if data != nil {
		payload["data"] = data
	}
	return s.api.Post(ctx, "/admin/users/bulk", payload, nil)
}
