package handlers

import (
	"context"
	"net/http"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/services"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// UploadSigner issues presigned upload URLs
type UploadSigner interface {
	SignUpload(ctx context.Context, subject string, input *models.UploadURLInput) (*models.UploadURL, error)
}

// UploadHandler hands out signed upload URLs to authenticated users
type UploadHandler struct {
	signer  UploadSigner
	auditor services.Auditor
	logger  *zap.Logger
}

// NewUploadHandler creates a new UploadHandler. A nil signer answers 502.
func NewUploadHandler(signer UploadSigner, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		signer:  signer,
		auditor: services.NoopAuditor(),
		logger:  logger,
	}
}

// WithAuditor sets where issued upload URLs are recorded
func (h *UploadHandler) WithAuditor(a services.Auditor) *UploadHandler {
	h.auditor = a
	return h
}

// HandleCreate handles POST /api/v1/uploads
func (h *UploadHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	subject, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	var input models.UploadURLInput
	if !decodeAndValidate(w, r, &input, h.logger) {
		return
	}

	if h.signer == nil {
		HandleServiceError(w, services.ErrStorageUnavailable, h.logger)
		return
	}

	upload, err := h.signer.SignUpload(r.Context(), subject, &input)
	if err != nil {
		HandleServiceError(w, services.WrapExternal(services.ErrStorageUnavailable.Message, err), h.logger)
		return
	}

	h.logger.Info("upload url issued",
		zap.String("user_id", subject),
		zap.String("key", upload.Key))
	services.RecordAudit(r.Context(), h.auditor, h.logger,
		models.NewAuditEvent(subject, models.AuditActionUploadURLIssued, "upload").
			WithResource(upload.Key).
			WithDetails(map[string]string{"content_type": input.ContentType}))
	writeOrLog(utils.WriteCreated(w, upload), h.logger)
}
