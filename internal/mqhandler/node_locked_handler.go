package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	contracts "acadtrack/contracts/mq"
	"acadtrack/internal/model"
	"acadtrack/internal/service/audience"
	"acadtrack/internal/service/notifier"
	"acadtrack/pkg/metrics"
	"acadtrack/pkg/mq"
	"acadtrack/pkg/trace"
	"acadtrack/pkg/util"
)

const maxRetries = 5

// NodeLockedHandler fans a committed node-locked event out to the project's
// active student members, minus the actor who took the lock.
//
// Failure policy: poison payloads and retry-exhausted events go to the DLQ
// and are acked; transient resolver errors are returned so the consumer
// nacks and redelivers.
type NodeLockedHandler struct {
	resolver     *audience.Resolver
	sender       *notifier.Sender
	deduper      *util.Deduper
	retryCounter *util.RetryCounter
	dlq          *mq.Publisher
	logger       *zap.Logger
}

func NewNodeLockedHandler(
	resolver *audience.Resolver,
	sender *notifier.Sender,
	deduper *util.Deduper,
	retryCounter *util.RetryCounter,
	dlq *mq.Publisher,
	logger *zap.Logger,
) *NodeLockedHandler {
	return &NodeLockedHandler{
		resolver:     resolver,
		sender:       sender,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		logger:       logger,
	}
}

func (h *NodeLockedHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload contracts.NodeLockedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// poison message, retrying cannot help
		h.logger.Error("Failed to decode node-locked payload, sending to DLQ",
			zap.Error(err),
		)
		h.deadLetter(payload.RoutingKey(), data, err)
		return nil
	}

	if payload.TraceID != "" {
		ctx = trace.WithContext(ctx, payload.TraceID)
	}
	log := h.logger.With(
		zap.String("node_type", payload.NodeType),
		zap.Int("node_id", payload.NodeID),
		zap.Int("project_id", payload.ProjectID),
	)

	dedupKey := int64(payload.NodeID)<<32 | int64(uint32(payload.LockedAt.Unix()))
	if !h.deduper.AcquireOnce(ctx, "node_locked."+payload.NodeType, dedupKey) {
		return nil
	}

	retryKey := util.FormatRetryKey("node_locked", dedupKey)

	recipients, err := h.resolver.Resolve(ctx, payload.ProjectID, payload.ActorID)
	if err != nil {
		return h.handleResolveError(ctx, log, retryKey, payload, data, err)
	}

	metrics.RecordNotificationFanout(payload.NodeType, len(recipients))
	if len(recipients) == 0 {
		log.Debug("No recipients for lock notification")
		h.retryCounter.Reset(ctx, retryKey)
		return nil
	}

	title, body := audience.BuildLockMessage(model.NodeType(payload.NodeType), payload.Title)
	for _, userID := range recipients {
		h.sender.Deliver(ctx, userID, title, body, payload.NodeID, payload.NodeType)
	}

	h.retryCounter.Reset(ctx, retryKey)
	log.Info("Lock notification dispatched",
		zap.Int("recipient_count", len(recipients)),
	)
	return nil
}

func (h *NodeLockedHandler) handleResolveError(ctx context.Context, log *zap.Logger, retryKey string, payload contracts.NodeLockedPayload, raw json.RawMessage, err error) error {
	isRetryable, errType := util.IsRetryableError(err)
	retryCount, _ := h.retryCounter.IncrementAndGet(ctx, retryKey)

	log.Warn("Audience resolution failed",
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Int64("retry", retryCount),
		zap.Error(err),
	)

	if util.ShouldRetry(retryCount, maxRetries, isRetryable) {
		return err // nack, redeliver
	}

	h.deadLetter(payload.RoutingKey(), raw, err)
	h.retryCounter.Reset(ctx, retryKey)
	return nil // ack, the DLQ owns it now
}

func (h *NodeLockedHandler) deadLetter(routingKey string, raw json.RawMessage, cause error) {
	if h.dlq == nil {
		return
	}
	if err := h.dlq.PublishToDLQ(routingKey, raw, cause.Error()); err != nil {
		h.logger.Error("Failed to publish to DLQ",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
