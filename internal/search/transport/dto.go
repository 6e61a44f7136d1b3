package transport

import (
	"time"

	"leaddesk_backend/internal/search/domain"

	"github.com/google/uuid"
)

type SearchRequest struct {
	Query string `form:"q" validate:"max=100"`
	Tab   string `form:"tab" validate:"omitempty,tab_filter"`
	Scope string `form:"scope" validate:"omitempty,oneof=leads enrolledClients"`
	Page  int    `form:"page" validate:"omitempty,min=1"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type SearchResultItem struct {
	ID               uuid.UUID      `json:"id"`
	Kind             string         `json:"kind"`
	Name             string         `json:"name"`
	PrimaryEmail     string         `json:"primaryEmail"`
	ContactNumbers   []string       `json:"contactNumbers"`
	Status           string         `json:"status"`
	StatusGroup      string         `json:"statusGroup"`
	FollowUpDateTime *time.Time     `json:"followUpDateTime,omitempty"`
	AssignTo         *domain.Person `json:"assignTo,omitempty"`
	ArchiveReason    string         `json:"archiveReason,omitempty"`
	PackageName      string         `json:"packageName,omitempty"`
	Score            float64        `json:"score"`
}

// SearchResponse reports where the results came from: "index" normally,
// "database" when the index was unreachable.
type SearchResponse struct {
	Items  []SearchResultItem `json:"items"`
	Total  int                `json:"total"`
	Page   int                `json:"page"`
	Limit  int                `json:"limit"`
	Source string             `json:"source"`
}

type ReindexResponse struct {
	Enqueued int `json:"enqueued"`
}
