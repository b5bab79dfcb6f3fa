package settings

// Email providers the backend knows.
var Providers = []string{"resend", "sendgrid", "ses", "none"}

// Email test outcomes reported by the backend.
const (
	TestSuccess   = "success"
	TestFailed    = "failed"
	TestPending   = "pending"
	TestNotTested = "not_tested"
)

// Resend holds the Resend credentials. The backend returns APIKey masked.
type Resend struct {
	APIKey       string `json:"apiKey"`
	FromEmail    string `json:"fromEmail" validate:"omitempty,email"`
	FromName     string `json:"fromName" validate:"max=100"`
	ReplyToEmail string `json:"replyToEmail" validate:"omitempty,email"`
}

// EmailService configures transactional email.
type EmailService struct {
	Provider   string `json:"provider" validate:"oneof=resend sendgrid ses none"`
	Resend     Resend `json:"resend"`
	Enabled    bool   `json:"enabled"`
	LastTested string `json:"lastTested,omitempty"`
	TestStatus string `json:"testStatus"`
}

// AIService configures the content generation model.
type AIService struct {
	Provider    string `json:"provider" validate:"required"`
	Model       string `json:"model" validate:"required"`
	Timeout     int    `json:"timeout" validate:"gte=1,lte=600"`
	MaxAttempts int    `json:"maxAttempts" validate:"gte=1,lte=10"`
}

// RateLimiting configures per-user request limits.
type RateLimiting struct {
	Enabled         bool `json:"enabled"`
	RequestsPerHour int  `json:"requestsPerHour" validate:"gte=0"`
	RequestsPerDay  int  `json:"requestsPerDay" validate:"gte=0,gtefield=RequestsPerHour"`
}

// Features are product feature flags.
type Features struct {
	ContentGroups bool `json:"contentGroups"`
	Templates     bool `json:"templates"`
	Scheduling    bool `json:"scheduling"`
	Analytics     bool `json:"analytics"`
}

// Maintenance puts the product into maintenance mode.
type Maintenance struct {
	Enabled        bool   `json:"enabled"`
	Message        string `json:"message" validate:"required_if=Enabled true,max=500"`
	ScheduledStart string `json:"scheduledStart,omitempty"`
	ScheduledEnd   string `json:"scheduledEnd,omitempty"`
}

// Settings is the system configuration served by /admin/settings.
type Settings struct {
	EmailService EmailService `json:"emailService"`
	AIService    AIService    `json:"aiService"`
	RateLimiting RateLimiting `json:"rateLimiting"`
	Features     Features     `json:"features"`
	Maintenance  Maintenance  `json:"maintenance"`
}

// CanTestEmail reports whether a test email can be attempted.
func (s Settings) CanTestEmail() bool {
	return s.EmailService.Resend.APIKey != ""
}

// Tabs are the sections of the settings page.
var Tabs = []string{"email", "ai", "features", "maintenance"}
