package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/contentforge/admin-console/internal/shared"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Recorder observes backend calls.
type Recorder interface {
	ObserveBackend(method string, status int, elapsed time.Duration)
}

// Config configures the backend client.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	GrantWildcard bool
	HTTPClient    *http.Client
	Logger        *slog.Logger
	Metrics       Recorder
}

// Client wraps the platform's REST API.
type Client struct {
	baseURL       string
	grantWildcard bool
	httpClient    *http.Client
	logger        *slog.Logger
	metrics       Recorder
	now           func() time.Time
}

// Page is a paginated list body.
type Page[T any] struct {
	Data       []T               `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

// NewClient constructs a new client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		grantWildcard: cfg.GrantWildcard,
		httpClient:    httpClient,
		logger:        logger,
		metrics:       cfg.Metrics,
		now:           time.Now,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the unwrapped body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST.
func (c *Client) Post(ctx context.Context, path string, payload, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}

// Put issues a PUT.
func (c *Client) Put(ctx context.Context, path string, payload, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, payload, out)
}

// Patch issues a PATCH.
func (c *Client) Patch(ctx context.Context, path string, payload, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, payload, out)
}

// Delete issues a DELETE. Some endpoints expect a confirmation body.
func (c *Client) Delete(ctx context.Context, path string, payload, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, payload, out)
}

// Health calls the backend health probe. It never expires the session.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.Probe(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Probe issues a GET that leaves the session alone on a 401, so anonymous
// diagnostics can tell "needs auth" from "down".
func (c *Client) Probe(ctx context.Context, path string, query url.Values, out any) error {
	return c.send(ctx, http.MethodGet, path, query, nil, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	return c.send(ctx, method, path, query, payload, out, true)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload, out any, expireOn401 bool) error {
	endpoint, err := c.endpoint(method, path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	sess := sessionFrom(ctx)
	bearer := ""
	if sess != nil {
		bearer = sess.Token()
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("backend unreachable", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return &shared.NetworkError{Method: method, Path: path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(method, resp.StatusCode, start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &shared.NetworkError{Method: method, Path: path, Err: err}
	}
	c.logger.Debug("backend call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", c.now().Sub(start)))

	if resp.StatusCode == http.StatusUnauthorized && bearer != "" && expireOn401 {
		sess.ForceLogout()
		return shared.ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &shared.RemoteError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: remoteMessage(raw),
			Body:    raw,
		}
	}
	if err := decodeBody(raw, out); err != nil {
		var remoteErr *shared.RemoteError
		if errors.As(err, &remoteErr) {
			remoteErr.Method, remoteErr.Path, remoteErr.Status = method, path, resp.StatusCode
			return remoteErr
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) endpoint(method, path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("backend url: %w", err)
	}
	q := u.Query()
	for key, values := range query {
		for _, v := range values {
			if v != "" {
				q.Add(key, v)
			}
		}
	}
	if method == http.MethodGet {
		q.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveBackend(method, status, c.now().Sub(start))
}

type envelope struct {
	Success    *bool           `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination json.RawMessage `json:"pagination"`
	Message    string          `json:"message"`
	Error      json.RawMessage `json:"error"`
}

// decodeBody unwraps {success, data} envelopes. Paginated bodies keep their
// data and pagination side by side and decode as a whole.
func decodeBody(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		if out == nil {
			return nil
		}
		return json.Unmarshal(trimmed, out)
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	if env.Success != nil && !*env.Success {
		return &shared.RemoteError{Message: remoteMessage(trimmed), Body: raw}
	}
	if out == nil {
		return nil
	}
	if env.Success != nil && len(env.Data) > 0 && len(env.Pagination) == 0 {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(trimmed, out)
}

func remoteMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	if len(env.Error) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(env.Error, &text); err == nil {
		return text
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}
