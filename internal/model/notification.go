package model

import "time"

type Notification struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	ReferenceID   int       `json:"reference_id"`
	ReferenceType string    `json:"reference_type"` // PROJECT / MILESTONE
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}
