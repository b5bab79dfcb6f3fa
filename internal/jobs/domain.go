package jobs

import "github.com/contentforge/admin-console/internal/backend"

// Statuses of a generation job.
var Statuses = []string{"PENDING", "QUEUED", "RUNNING", "SUCCEEDED", "FAILED"}

// Types of generation job.
var Types = []string{"GENERATE_OUTLINE", "GENERATE_ARTICLE", "PROOFREAD", "IMPROVE"}

// SortKeys accepted by the job list.
var SortKeys = []string{"createdAt", "processingTime", "tokensUsed"}

// Owner is the user who queued a job.
type Owner struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ContentRef names the content group a job works on.
type ContentRef struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Topic string `json:"topic"`
}

// Job is one AI generation job.
type Job struct {
	ID             string            `json:"_id"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	Priority       int               `json:"priority"`
	Attempts       int               `json:"attempts"`
	MaxAttempts    int               `json:"maxAttempts"`
	Owner          Owner             `json:"userId"`
	Content        *ContentRef       `json:"contentGroupId"`
	CreatedAt      backend.Timestamp `json:"createdAt"`
	StartedAt      backend.Timestamp `json:"startedAt"`
	CompletedAt    backend.Timestamp `json:"completedAt"`
	ProcessingTime float64           `json:"processingTime"`
	TokensUsed     int               `json:"tokensUsed"`
	Error          string            `json:"error"`
	Metadata       map[string]any    `json:"metadata"`
}

// Key returns the id the backend addresses the job by.
func (j Job) Key() string {
	return j.ID
}

// ShortID is the id prefix shown in tables.
func (j Job) ShortID() string {
	if len(j.ID) > 8 {
		return j.ID[:8]
	}
	return j.ID
}

// Retryable reports whether the retry control applies.
func (j Job) Retryable() bool {
	return j.Status == "FAILED"
}

// Cancellable reports whether the cancel control applies.
func (j Job) Cancellable() bool {
	switch j.Status {
	case "PENDING", "QUEUED", "RUNNING":
		return true
	}
	return false
}

// Stats summarises the job queue.
type Stats struct {
	Total             int     `json:"total"`
	Pending           int     `json:"pending"`
	Running           int     `json:"running"`
	Succeeded         int     `json:"succeeded"`
	Failed            int     `json:"failed"`
	AvgProcessingTime float64 `json:"avgProcessingTime"`
	TotalTokens       int     `json:"totalTokens"`
}

// SuccessRate is the share of finished jobs that succeeded.
func (s Stats) SuccessRate() float64 {
	done := s.Succeeded + s.Failed
	if done == 0 {
		return 0
	}
	return float64(s.Succeeded) * 100 / float64(done)
}

// Bulk actions on jobs.
const (
	ActionRetry  = "retry"
	ActionCancel = "cancel"
	ActionDelete = "delete"
)
