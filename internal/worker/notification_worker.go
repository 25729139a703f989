package worker

import (
	"github.com/spec-kit/user-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to the
// account lifecycle events it cares about. Delivery is synchronous
// with the publishing request; a nil service disables notifications.
func StartNotificationWorker(notifications *service.NotificationService) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
}
