package handlers

import (
	"context"
	"net/http"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// AuditLister reads the most recent audit events
type AuditLister interface {
	ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error)
}

// AuditHandler exposes the audit trail to admins
type AuditHandler struct {
	audit  AuditLister
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler. A nil lister answers with an
// empty list.
func NewAuditHandler(audit AuditLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// HandleList handles GET /api/v1/admin/audit
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if h.audit == nil {
		writeOrLog(utils.WriteOK(w, []*models.AuditEvent{}), h.logger)
		return
	}

	events, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteOK(w, events), h.logger)
}
