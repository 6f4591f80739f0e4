package model

import "time"

const (
	ProjectStatusActive    = "ACTIVE"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusLocked    = "LOCKED"
)

type Project struct {
	ID                   int        `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Objectives           string     `json:"objectives"`
	Scope                string     `json:"scope"`
	Status               string     `json:"status"` // ACTIVE / COMPLETED / LOCKED
	CompletionPercentage float64    `json:"completion_percentage"`
	Locked               bool       `json:"locked"`
	LockedBy             *int       `json:"locked_by,omitempty"`
	LockedAt             *time.Time `json:"locked_at,omitempty"`
	ObjectivesLocked     bool       `json:"objectives_locked"`
	Version              int        `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
