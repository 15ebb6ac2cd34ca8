package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskgate/deskgate/internal/config"
	"github.com/deskgate/deskgate/internal/events"
)

// NotificationService pushes every committed domain event onto a Redis list
// for downstream delivery workers. Outbox failures are logged and swallowed;
// they never reach the caller or the originating mutation.
type NotificationService struct {
	dispatcher events.Dispatcher
	client     *redis.Client
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, client *redis.Client, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		client:     client,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes the outbox to all event types.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.SubscribeAll(n.enqueue)
}

func (n *NotificationService) enqueue(ctx context.Context, event events.Event) error {
	if n.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal notification", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	if err := n.client.LPush(ctx, n.cfg.OutboxKey, payload).Err(); err != nil {
		n.logger.Error("enqueue notification",
			zap.String("event_id", event.ID),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}
