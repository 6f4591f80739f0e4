package model

import "time"

const (
	MilestoneStatusInProgress = "IN_PROGRESS"
	MilestoneStatusCompleted  = "COMPLETED"
)

type Milestone struct {
	ID                   int        `json:"id"`
	ProjectID            int        `json:"project_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	OrderNumber          int        `json:"order_number"`
	Status               string     `json:"status"` // IN_PROGRESS / COMPLETED
	CompletionPercentage float64    `json:"completion_percentage"`
	Locked               bool       `json:"locked"`
	LockedBy             *int       `json:"locked_by,omitempty"`
	LockedAt             *time.Time `json:"locked_at,omitempty"`
	Version              int        `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
