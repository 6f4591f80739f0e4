package model

import "time"

const (
	ReportStatusSubmitted = "SUBMITTED"
	ReportStatusLocked    = "LOCKED"
)

// Report hangs off a project and optionally a milestone and/or task. Reports
// are never cascade targets, but their effective lock still follows the
// ancestor chain.
type Report struct {
	ID          int        `json:"id"`
	ProjectID   int        `json:"project_id"`
	MilestoneID *int       `json:"milestone_id,omitempty"`
	TaskID      *int       `json:"task_id,omitempty"`
	AuthorID    int        `json:"author_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Status      string     `json:"status"` // SUBMITTED / LOCKED
	Locked      bool       `json:"locked"`
	LockedBy    *int       `json:"locked_by,omitempty"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
	Version     int        `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
