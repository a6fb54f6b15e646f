package services

import (
	"context"

	"github.com/upb/tradedesk/middleware"
	"github.com/upb/tradedesk/models"
	"go.uber.org/zap"
)

// Auditor records security-relevant actions. Record must not block the caller.
type Auditor interface {
	Record(event *models.AuditEvent) error
}

type noopAuditor struct{}

func (noopAuditor) Record(*models.AuditEvent) error { return nil }

// NoopAuditor returns an Auditor that discards every event
func NoopAuditor() Auditor {
	return noopAuditor{}
}

// RecordAudit stamps event with the request id from ctx and hands it to a.
// A failed audit write never fails the operation; it is logged instead.
func RecordAudit(ctx context.Context, a Auditor, logger *zap.Logger, event *models.AuditEvent) {
	if a == nil {
		return
	}
	event.WithRequestID(middleware.GetRequestIDFromContext(ctx))
	if err := a.Record(event); err != nil {
		logger.Warn("failed to record audit event",
			zap.String("action", string(event.Action)),
			zap.String("actor", event.Actor),
			zap.Error(err))
	}
}
