package settings

import (
	"context"
	"net/url"
)

// API is the subset of the backend client used here.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Put(ctx context.Context, path string, payload, out any) error
	Post(ctx context.Context, path string, payload, out any) error
}

// Service wraps the system settings endpoints.
type Service struct {
	api API
}

// NewService constructs a Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Get loads the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.api.Get(ctx, "/admin/settings", nil, &out)
	return out, err
}

// Update replaces the settings.
func (s *Service) Update(ctx context.Context, settings Settings) error {
	return s.api.Put(ctx, "/admin/settings", settings, nil)
}

// TestEmail asks the backend to send a test message and returns its
// confirmation text.
func (s *Service) TestEmail(ctx context.Context, email string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := s.api.Post(ctx, "/admin/settings/email/test", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	if out.Message == "" {
		out.Message = "Test email sent to " + email
	}
	return out.Message, nil
}
