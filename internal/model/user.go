package model

import "time"

const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
	RoleAdmin      = "admin"
)

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // instructor / student / admin
	CreatedAt    time.Time `json:"created_at"`
}

// Membership ties a user to a project. Inactive memberships are kept for
// history but excluded from notification audiences.
type Membership struct {
	ProjectID int       `json:"project_id"`
	UserID    int       `json:"user_id"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	JoinedAt  time.Time `json:"joined_at"`
}
