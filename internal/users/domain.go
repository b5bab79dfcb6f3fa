package users

import "github.com/contentforge/admin-console/internal/backend"

// Plans offered by the platform.
var Plans = []string{"free", "pro", "enterprise", "dev"}

// Statuses a user list can be filtered by.
var Statuses = []string{"active", "suspended"}

// SortKeys accepted by the user list.
var SortKeys = []string{"createdAt", "lastActive", "usage", "revenue"}

// Subscription is the billing state of a user.
type Subscription struct {
	Plan             string            `json:"plan"`
	Status           string            `json:"status"`
	CurrentPeriodEnd backend.Timestamp `json:"currentPeriodEnd"`
	StripeCustomerID string            `json:"stripeCustomerId,omitempty"`
}

// Limits caps a user's consumption.
type Limits struct {
	MonthlyJobs        int `json:"monthlyJobs" validate:"gte=0"`
	MonthlyTokens      int `json:"monthlyTokens" validate:"gte=0"`
	DailyJobs          int `json:"dailyJobs" validate:"gte=0"`
	MaxRequestsPerHour int `json:"maxRequestsPerHour" validate:"gte=0"`
}

// DefaultLimits apply when the backend reports none.
var DefaultLimits = Limits{MonthlyJobs: 50, MonthlyTokens: 100000, DailyJobs: 10, MaxRequestsPerHour: 30}

// MonthUsage is the consumption of the current billing month.
type MonthUsage struct {
	Jobs   int `json:"jobs"`
	Tokens int `json:"tokens"`
}

// UsageStats aggregates what a user consumed.
type UsageStats struct {
	TotalJobsCompleted int        `json:"totalJobsCompleted"`
	TotalTokensUsed    int        `json:"totalTokensUsed"`
	ContentGenerated   int        `json:"contentGenerated"`
	CurrentMonthUsage  MonthUsage `json:"currentMonthUsage"`
	PlanLimits         *Limits    `json:"planLimits"`
}

// User is a platform customer as the admin API returns it.
type User struct {
	ID           string            `json:"id"`
	MongoID      string            `json:"_id"`
	Username     string            `json:"username"`
	Email        string            `json:"email"`
	IsActive     bool              `json:"isActive"`
	IsVerified   bool              `json:"isVerified"`
	Subscription Subscription      `json:"subscription"`
	UsageStats   UsageStats        `json:"usageStats"`
	LastActiveAt backend.Timestamp `json:"lastActive"`
	CreatedAt    backend.Timestamp `json:"createdAt"`
	UpdatedAt    backend.Timestamp `json:"updatedAt"`
}

// Key returns the id the backend addresses the user by.
func (u User) Key() string {
	if u.MongoID != "" {
		return u.MongoID
	}
	return u.ID
}

// Status is the display status.
func (u User) Status() string {
	if u.IsActive {
		return "active"
	}
	return "suspended"
}

// Limits returns the plan limits or the defaults.
func (u User) Limits() Limits {
	if u.UsageStats.PlanLimits != nil {
		return *u.UsageStats.PlanLimits
	}
	return DefaultLimits
}

// JobUsagePercent is the share of the monthly job allowance consumed.
func (u User) JobUsagePercent() float64 {
	limit := u.Limits().MonthlyJobs
	if limit <= 0 {
		return 0
	}
	return float64(u.UsageStats.CurrentMonthUsage.Jobs) * 100 / float64(limit)
}

// Update is the editable part of a user.
type Update struct {
	Username     string       `json:"username" validate:"required,min=2,max=64"`
	Email        string       `json:"email" validate:"required,email"`
	Subscription Subscription `json:"subscription"`
	IsActive     bool         `json:"isActive"`
}

// Bulk actions on users.
const (
	ActionActivate = "activate"
	ActionSuspend  = "suspend"
	ActionDelete   = "delete"
)
