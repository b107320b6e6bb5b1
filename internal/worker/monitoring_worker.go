package worker

import (
	"github.com/crm-kit/lead-router/internal/service"
)

// StartMonitoringWorker registers the routing event handlers.
func StartMonitoringWorker(monitoringService *service.MonitoringService) {
	if monitoringService == nil {
		return
	}
	monitoringService.RegisterHandlers()
}
