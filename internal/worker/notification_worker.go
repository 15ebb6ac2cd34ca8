package worker

import (
	"github.com/deskgate/deskgate/internal/service"
)

// StartEventWorkers registers the event subscribers that fan committed
// mutations out to the notification outbox and the automation queue.
func StartEventWorkers(notifications *service.NotificationService, automations *service.AutomationService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if automations != nil {
		automations.RegisterHandlers()
	}
}
