package content

import "github.com/contentforge/admin-console/internal/backend"

// Statuses of a content group.
var Statuses = []string{"DRAFT", "IN_PROGRESS", "COMPLETED", "FAILED"}

// SortKeys accepted by the content list.
var SortKeys = []string{"createdAt", "updatedAt", "title", "completionPercentage"}

// Owner is the user a content group belongs to.
type Owner struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Summary counts what a content group produced.
type Summary struct {
	KeywordsCount    int     `json:"keywordsCount"`
	ArticleWordCount int     `json:"articleWordCount"`
	SEOScore         float64 `json:"seoScore"`
	HashtagsCount    int     `json:"hashtagsCount"`
}

// Group is one generated content project.
type Group struct {
	ID                   string            `json:"_id"`
	Owner                Owner             `json:"userId"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Topic                string            `json:"topic"`
	TargetAudience       string            `json:"targetAudience"`
	Status               string            `json:"status"`
	CompletionPercentage float64           `json:"completionPercentage"`
	Summary              Summary           `json:"summary"`
	Tags                 []string          `json:"tags"`
	IsFavorite           bool              `json:"isFavorite"`
	IsArchived           bool              `json:"isArchived"`
	CreatedAt            backend.Timestamp `json:"createdAt"`
	UpdatedAt            backend.Timestamp `json:"updatedAt"`
}

// Key returns the id the backend addresses the group by.
func (g Group) Key() string {
	return g.ID
}

// StatusLabel is the status shown in badges.
func (g Group) StatusLabel() string {
	switch g.Status {
	case "IN_PROGRESS":
		return "In progress"
	case "COMPLETED":
		return "Completed"
	case "FAILED":
		return "Failed"
	default:
		return "Draft"
	}
}

// ActionDelete is the only bulk action on content.
const ActionDelete = "delete"
