// Package diagnostics probes the services the console depends on. It backs
// the public setup and debug pages, so every probe must work without a
// signed-in operator.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/contentforge/admin-console/internal/dashboard"
	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
)

// DefaultTimeout bounds each probe.
const DefaultTimeout = 5 * time.Second

// Status grades one check.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

func (s Status) rank() int {
	switch s {
	case StatusError:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Check is the outcome of one probe.
type Check struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Message  string        `json:"message"`
	Action   string        `json:"action,omitempty"`
	Duration time.Duration `json:"durationNs"`
}

// Millis is the probe duration for display.
func (c Check) Millis() float64 {
	return float64(c.Duration.Microseconds()) / 1000
}

// Report is one diagnostics run.
type Report struct {
	Checks     []Check   `json:"checks"`
	BackendURL string    `json:"backendUrl"`
	Operator   string    `json:"operator,omitempty"`
	RanAt      time.Time `json:"ranAt"`
}

// Overall is the worst status of the run.
func (r Report) Overall() Status {
	worst := StatusSuccess
	for _, c := range r.Checks {
		if c.Status.rank() > worst.rank() {
			worst = c.Status
		}
	}
	return worst
}

// Count returns how many checks ended with status.
func (r Report) Count(status Status) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

// Check returns the named check.
func (r Report) Check(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Prober reaches the backend without expiring the session on a 401.
type Prober interface {
	Probe(ctx context.Context, path string, query url.Values, out any) error
}

// Pinger is the Redis surface.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Renderer is the PDF renderer surface.
type Renderer interface {
	Configured() bool
	Ping(ctx context.Context) error
}

// AuditTrail reports whether operator actions are persisted.
type AuditTrail interface {
	Enabled() bool
}

// SnapshotLoader reads the shared dashboard snapshot.
type SnapshotLoader interface {
	Load(ctx context.Context) (dashboard.Snapshot, error)
}

// Deps are the probed services. Nil entries are reported as not configured.
type Deps struct {
	Backend    Prober
	BackendURL string
	Redis      Pinger
	Renderer   Renderer
	Audit      AuditTrail
	Dashboard  SnapshotLoader
}

// Session is the caller as seen by the session store.
type Session struct {
	Identity  *rbac.Identity
	ExpiresAt time.Time
}

// Check names.
const (
	CheckBackend   = "Backend Server"
	CheckAdminAPI  = "Admin API Access"
	CheckUsers     = "User Directory"
	CheckRedis     = "Session Store"
	CheckRenderer  = "PDF Renderer"
	CheckAuth      = "Authentication System"
	CheckAudit     = "Audit Trail"
	CheckDashboard = "Dashboard Snapshot"
)

var overviewFields = []string{"totalUsers", "activeUsers", "cpuUsage", "memoryUsage", "diskUsage"}

// Service runs the probes.
type Service struct {
	deps    Deps
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{deps: deps, logger: logger, timeout: DefaultTimeout, now: time.Now}
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithClock overrides the clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type probe struct {
	name string
	run  func(ctx context.Context, sess Session) Check
}

// Run executes every probe concurrently. Probes never fail the run; their
// outcome is in the returned checks, in a fixed order.
func (s *Service) Run(ctx context.Context, sess Session) Report {
	probes := []probe{
		{CheckBackend, s.backend},
		{CheckAdminAPI, s.adminAPI},
		{CheckUsers, s.users},
		{CheckRedis, s.redis},
		{CheckRenderer, s.renderer},
		{CheckAuth, s.auth},
		{CheckAudit, s.audit},
		{CheckDashboard, s.dashboard},
	}
	checks := make([]Check, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			start := s.now()
			c := p.run(pctx, sess)
			c.Name = p.name
			c.Duration = s.now().Sub(start)
			checks[i] = c
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Checks: checks, BackendURL: s.deps.BackendURL, RanAt: s.now()}
	if sess.Identity != nil {
		report.Operator = sess.Identity.Email
	}
	s.logger.Info("diagnostics run",
		slog.String("overall", string(report.Overall())),
		slog.Int("warnings", report.Count(StatusWarning)),
		slog.Int("errors", report.Count(StatusError)))
	return report
}

func (s *Service) backend(ctx context.Context, _ Session) Check {
	if s.deps.Backend == nil {
		return Check{Status: StatusError, Message: "Backend client not configured", Action: "Set BACKEND_BASE_URL"}
	}
	var health map[string]any
	err := s.deps.Backend.Probe(ctx, "/health", nil, &health)
	if err != nil && !needsAuth(err) {
		return Check{
			Status:  StatusError,
			Message: "Cannot reach backend: " + shared.UserSafeMessage(err),
			Action:  "Make sure the API server is running at " + s.deps.BackendURL,
		}
	}
	msg := "Backend server is running"
	if status, ok := health["status"].(string); ok && status != "" {
		msg += " (" + status + ")"
	}
	return Check{Status: StatusSuccess, Message: msg}
}

func (s *Service) adminAPI(ctx context.Context, sess Session) Check {
	if s.deps.Backend == nil {
		return Check{Status: StatusError, Message: "Backend client not configured"}
	}
	var stats map[string]any
	err := s.deps.Backend.Probe(ctx, "/admin/analytics/overview", nil, &stats)
	if c, done := s.remoteOutcome(err, sess, "Admin API"); done {
		return c
	}
	var missing []string
	for _, field := range overviewFields {
		if _, ok := stats[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Check{
			Status:  StatusWarning,
			Message: "Overview is missing fields: " + strings.Join(missing, ", "),
			Action:  "Upgrade the backend to a version that reports system stats",
		}
	}
	return Check{Status: StatusSuccess, Message: "Admin API is returning statistics"}
}

type userPage struct {
	Data       []json.RawMessage `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (s *Service) users(ctx context.Context, sess Session) Check {
	if s.deps.Backend == nil {
		return Check{Status: StatusError, Message: "Backend client not configured"}
	}
	var page userPage
	err := s.deps.Backend.Probe(ctx, "/admin/users", url.Values{"limit": {"1"}}, &page)
	if c, done := s.remoteOutcome(err, sess, "User directory"); done {
		return c
	}
	return Check{Status: StatusSuccess, Message: fmt.Sprintf("User directory reachable (%d users)", page.Pagination.Total)}
}

// remoteOutcome grades a failed admin probe. done is false when err is nil.
func (s *Service) remoteOutcome(err error, sess Session, what string) (Check, bool) {
	if err == nil {
		return Check{}, false
	}
	switch {
	case needsAuth(err) && sess.Identity == nil:
		return Check{Status: StatusSuccess, Message: what + " available (authentication required)"}, true
	case needsAuth(err):
		return Check{Status: StatusWarning, Message: what + " rejected the session token", Action: "Sign in again at /login"}, true
	case shared.RemoteStatus(err) == http.StatusForbidden:
		return Check{Status: StatusWarning, Message: what + " denied access", Action: "Use an account with the admin role"}, true
	}
	s.logger.Warn("diagnostics probe failed", slog.String("check", what), slog.Any("error", err))
	return Check{Status: StatusError, Message: what + " unavailable: " + shared.UserSafeMessage(err), Action: "Check the backend logs"}, true
}

func needsAuth(err error) bool {
	return errors.Is(err, shared.ErrSessionExpired) || shared.RemoteStatus(err) == http.StatusUnauthorized
}

func (s *Service) redis(ctx context.Context, _ Session) Check {
	if s.deps.Redis == nil {
		return Check{Status: StatusError, Message: "Redis not configured", Action: "Set REDIS_ADDR"}
	}
	if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
		return Check{Status: StatusError, Message: "Redis unreachable: " + err.Error(), Action: "Check REDIS_ADDR"}
	}
	return Check{Status: StatusSuccess, Message: "Sessions and notifications store is reachable"}
}

func (s *Service) renderer(ctx context.Context, _ Session) Check {
	if s.deps.Renderer == nil || !s.deps.Renderer.Configured() {
		return Check{Status: StatusWarning, Message: "PDF export disabled", Action: "Set GOTENBERG_URL to enable PDF exports"}
	}
	if err := s.deps.Renderer.Ping(ctx); err != nil {
		return Check{Status: StatusWarning, Message: "PDF renderer unreachable: " + err.Error(), Action: "Check the Gotenberg service"}
	}
	return Check{Status: StatusSuccess, Message: "PDF renderer is reachable"}
}

func (s *Service) auth(_ context.Context, sess Session) Check {
	if sess.Identity == nil {
		return Check{Status: StatusWarning, Message: "No active admin session", Action: "Sign in at /login"}
	}
	msg := fmt.Sprintf("Signed in as %s (%s)", sess.Identity.Email, sess.Identity.Role)
	if !sess.ExpiresAt.IsZero() {
		left := sess.ExpiresAt.Sub(s.now())
		if left <= 0 {
			return Check{Status: StatusWarning, Message: "Session token has expired", Action: "Sign in again at /login"}
		}
		msg += ", token valid for " + left.Round(time.Minute).String()
	}
	return Check{Status: StatusSuccess, Message: msg}
}

func (s *Service) audit(_ context.Context, _ Session) Check {
	if s.deps.Audit == nil || !s.deps.Audit.Enabled() {
		return Check{Status: StatusWarning, Message: "Operator actions are not persisted", Action: "Set AUDIT_PG_DSN"}
	}
	return Check{Status: StatusSuccess, Message: "Operator actions are recorded"}
}

func (s *Service) dashboard(ctx context.Context, _ Session) Check {
	if s.deps.Dashboard == nil {
		return Check{Status: StatusWarning, Message: "Dashboard snapshot not configured"}
	}
	snap, err := s.deps.Dashboard.Load(ctx)
	if err != nil {
		return Check{Status: StatusError, Message: "Cannot read snapshot: " + err.Error()}
	}
	if !snap.Loaded() {
		return Check{Status: StatusWarning, Message: "No dashboard snapshot yet", Action: "Start the worker or open the dashboard"}
	}
	age := snap.Age(s.now()).Round(time.Second)
	if snap.Error != "" {
		return Check{Status: StatusWarning, Message: fmt.Sprintf("Last refresh failed: %s (data is %s old)", snap.Error, age)}
	}
	if age > 4*snap.RefreshInterval {
		return Check{Status: StatusWarning, Message: fmt.Sprintf("Snapshot is %s old", age), Action: "Check that the worker is running"}
	}
	return Check{Status: StatusSuccess, Message: fmt.Sprintf("Updated %s ago", age)}
}

// Sorted returns the checks ordered by severity, worst first.
func (r Report) Sorted() []Check {
	out := append([]Check(nil), r.Checks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Status.rank() > out[j].Status.rank() })
	return out
}
