package mq

import "time"

// Delivery audit events published by the notifier after each attempt.
const (
	RoutingKeyNotificationSent   = "notification.sent"
	RoutingKeyNotificationFailed = "notification.failed"
)

type NotificationSentPayload struct {
	NotificationID int       `json:"notification_id"`
	UserID         int       `json:"user_id"`
	Channel        string    `json:"channel"` // PUSH
	SentAt         time.Time `json:"sent_at"`
}

type NotificationFailedPayload struct {
	UserID  int    `json:"user_id"`
	Channel string `json:"channel"`
	Error   string `json:"error"`
}
