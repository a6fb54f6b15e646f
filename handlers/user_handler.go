package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/tradedesk/middleware"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// ProfileService defines the profile operations used by UserHandler
type ProfileService interface {
	Get(ctx context.Context, subject string) (*models.User, error)
	Update(ctx context.Context, subject string, profile *models.Profile) (*models.User, error)
	SubmitKYC(ctx context.Context, subject string, submission *models.KYCSubmission) (*models.User, error)
}

// MeResponse echoes the verified token claims
type MeResponse struct {
	Subject         string   `json:"subject"`
	Roles           []string `json:"roles"`
	MigrationStatus string   `json:"migration_status,omitempty"`
	ExpiresAt       string   `json:"expires_at"`
}

// UserHandler handles the caller's own account
type UserHandler struct {
	profiles ProfileService
	logger   *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(profiles ProfileService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// HandleMe handles GET /api/v1/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeOrLog(utils.WriteUnauthorized(w, "Authentication required"), h.logger)
		return
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	writeOrLog(utils.WriteOK(w, MeResponse{
		Subject:         claims.Subject,
		Roles:           roles,
		MigrationStatus: claims.MigrationStatus,
		ExpiresAt:       claims.ExpiresAt.UTC().Format(time.RFC3339),
	}), h.logger)
}

// HandleGetProfile handles GET /api/v1/profile
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	subject, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.profiles.Get(r.Context(), subject)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteOK(w, user), h.logger)
}

// HandleUpdateProfile handles PUT /api/v1/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	subject, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	var profile models.Profile
	if !decodeAndValidate(w, r, &profile, h.logger) {
		return
	}

	user, err := h.profiles.Update(r.Context(), subject, &profile)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteOK(w, user), h.logger)
}

// HandleSubmitKYC handles POST /api/v1/kyc
func (h *UserHandler) HandleSubmitKYC(w http.ResponseWriter, r *http.Request) {
	subject, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	var submission models.KYCSubmission
	if !decodeAndValidate(w, r, &submission, h.logger) {
		return
	}

	user, err := h.profiles.SubmitKYC(r.Context(), subject, &submission)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteOK(w, user), h.logger)
}
