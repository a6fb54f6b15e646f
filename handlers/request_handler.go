package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// RequestService defines the transaction request operations used by RequestHandler
type RequestService interface {
	Create(ctx context.Context, subject string, input *models.CreateTransactionRequestInput) (*models.TransactionRequest, error)
	List(ctx context.Context, subject string, limit, offset int) ([]*models.TransactionRequest, error)
	UpdateStatus(ctx context.Context, reviewer string, id uuid.UUID, status models.RequestStatus) (*models.TransactionRequest, error)
}

// AnalyticsInvalidator drops cached aggregates after a review changes them
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context)
}

// RequestHandler handles transaction requests for users and admins
type RequestHandler struct {
	requests  RequestService
	analytics AnalyticsInvalidator
	logger    *zap.Logger
}

// NewRequestHandler creates a new RequestHandler. analytics may be nil.
func NewRequestHandler(requests RequestService, analytics AnalyticsInvalidator, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		requests:  requests,
		analytics: analytics,
		logger:    logger,
	}
}

// HandleList handles GET /api/v1/requests
func (h *RequestHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	subject, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	reqs, err := h.requests.List(r.Context(), subject, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteOK(w, reqs), h.logger)
}

// HandleCreate handles POST /api/v1/requests
func (h *RequestHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	subject, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	var input models.CreateTransactionRequestInput
	if !decodeAndValidate(w, r, &input, h.logger) {
		return
	}

	req, err := h.requests.Create(r.Context(), subject, &input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteCreated(w, req), h.logger)
}

// HandleUpdateStatus handles PUT /api/v1/admin/requests/{id}/status
func (h *RequestHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	reviewer, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	var input models.UpdateRequestStatusInput
	if !decodeAndValidate(w, r, &input, h.logger) {
		return
	}

	req, err := h.requests.UpdateStatus(r.Context(), reviewer, id, input.Status)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if h.analytics != nil {
		h.analytics.Invalidate(r.Context())
	}
	writeOrLog(utils.WriteOK(w, req), h.logger)
}
