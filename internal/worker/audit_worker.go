package worker

import (
	"github.com/fleetops/ops-dashboard/internal/service"
)

// StartAuditWorker registers auth audit handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
