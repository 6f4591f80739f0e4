package model

import "time"

const (
	TaskStatusNotStarted = "NOT_STARTED"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusCompleted  = "COMPLETED"
)

// Task is the floor of the lock cascade: locking a task never propagates
// further down. MilestoneID is nil for tasks attached directly to a project.
type Task struct {
	ID          int        `json:"id"`
	ProjectID   int        `json:"project_id"`
	MilestoneID *int       `json:"milestone_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"` // NOT_STARTED / IN_PROGRESS / COMPLETED
	Locked      bool       `json:"locked"`
	LockedBy    *int       `json:"locked_by,omitempty"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
	Version     int        `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ValidTaskStatus reports whether s is an accepted task status value.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}
