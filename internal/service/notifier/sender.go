// Package notifier delivers lock notifications to a resolved audience. The
// whole package is best-effort by contract: a failed store or push never
// propagates back toward the lock transaction, which has already committed
// by the time events reach here.
package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	contracts "acadtrack/contracts/mq"
	"acadtrack/internal/model"
	"acadtrack/internal/repository"
	"acadtrack/pkg/metrics"
	"acadtrack/pkg/mq"
)

type Sender struct {
	notifications *repository.NotificationRepository
	push          *PushClient
	publisher     *mq.Publisher // delivery audit events, may be nil
	logger        *zap.Logger
}

func NewSender(notifications *repository.NotificationRepository, push *PushClient, publisher *mq.Publisher, logger *zap.Logger) *Sender {
	return &Sender{
		notifications: notifications,
		push:          push,
		publisher:     publisher,
		logger:        logger,
	}
}

// Deliver stores an in-app notification and pushes it to one user. Errors
// are logged and counted, never returned.
func (s *Sender) Deliver(ctx context.Context, userID int, title, body string, referenceID int, referenceType string) {
	n := &model.Notification{
		UserID:        userID,
		Title:         title,
		Body:          body,
		ReferenceID:   referenceID,
		ReferenceType: referenceType,
	}

	id, err := s.notifications.Insert(ctx, n)
	if err != nil {
		metrics.IncrementNotificationDelivery("inapp", "failed")
		s.logger.Error("Failed to store notification",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	} else {
		metrics.IncrementNotificationDelivery("inapp", "success")
	}

	if err := s.push.Send(ctx, userID, title, body); err != nil {
		metrics.IncrementNotificationDelivery("push", "failed")
		s.logger.Warn("Push delivery failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		s.audit(ctx, contracts.RoutingKeyNotificationFailed, contracts.NotificationFailedPayload{
			UserID:  userID,
			Channel: "PUSH",
			Error:   err.Error(),
		})
		return
	}
	metrics.IncrementNotificationDelivery("push", "success")
	s.audit(ctx, contracts.RoutingKeyNotificationSent, contracts.NotificationSentPayload{
		NotificationID: id,
		UserID:         userID,
		Channel:        "PUSH",
		SentAt:         time.Now().UTC(),
	})
}

func (s *Sender) audit(ctx context.Context, routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishWithContext(ctx, routingKey, payload); err != nil {
		s.logger.Warn("Failed to publish delivery audit event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
