package worker

import (
	"github.com/helpdesk-io/support-desk/internal/service"
)

// StartNotificationWorker registers the change relay on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
