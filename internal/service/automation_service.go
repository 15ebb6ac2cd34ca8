package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/deskgate/deskgate/internal/config"
	"github.com/deskgate/deskgate/internal/events"
)

// AutomationTrigger is the message handed to the automation queue after a
// ticket is created or changes status.
type AutomationTrigger struct {
	TicketID    string `json:"ticket_id"`
	TriggerType string `json:"trigger_type"`
}

// AutomationService enqueues automation triggers on NATS. Delivery and
// ordering guarantees belong to the queue; publish failures are logged and
// swallowed.
type AutomationService struct {
	dispatcher events.Dispatcher
	conn       *nats.Conn
	logger     *zap.Logger
	cfg        config.NatsConfig
}

// NewAutomationService creates the service.
func NewAutomationService(dispatcher events.Dispatcher, conn *nats.Conn, logger *zap.Logger, cfg config.NatsConfig) *AutomationService {
	return &AutomationService{
		dispatcher: dispatcher,
		conn:       conn,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to the trigger-bearing event types.
func (a *AutomationService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.enqueue)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.enqueue)
}

func (a *AutomationService) enqueue(_ context.Context, event events.Event) error {
	if a.conn == nil {
		return nil
	}
	trigger := AutomationTrigger{
		TicketID:    event.TicketID,
		TriggerType: string(event.Type),
	}
	payload, err := json.Marshal(trigger)
	if err != nil {
		a.logger.Error("marshal automation trigger", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return nil
	}
	if err := a.conn.Publish(a.cfg.Subject, payload); err != nil {
		a.logger.Error("enqueue automation trigger",
			zap.String("ticket_id", event.TicketID),
			zap.String("trigger_type", trigger.TriggerType),
			zap.Error(err))
	}
	return nil
}
