package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"github.com/upb/tradedesk/services"
	"go.uber.org/zap"
)

// Service manages the caller's own profile and KYC submission. Every
// operation takes the verified subject; nothing here accepts a user id
// from request input.
type Service struct {
	users   repositories.UserRepository
	auditor services.Auditor
	logger  *zap.Logger
}

// NewService creates a new profile service
func NewService(users repositories.UserRepository, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		auditor: services.NoopAuditor(),
		logger:  logger,
	}
}

// WithAuditor sets where profile and KYC changes are recorded
func (s *Service) WithAuditor(a services.Auditor) *Service {
	s.auditor = a
	return s
}

// Get returns the user record for subject
func (s *Service) Get(ctx context.Context, subject string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to load profile", err)
	}
	return user, nil
}

// Update replaces the profile document of subject, creating the user on first write
func (s *Service) Update(ctx context.Context, subject string, profile *models.Profile) (*models.User, error) {
	if profile == nil {
		return nil, services.ErrInvalidInput
	}

	doc, err := json.Marshal(profile)
	if err != nil {
		return nil, services.WrapInternal("failed to encode profile", err)
	}

	user, err := s.users.UpsertProfile(ctx, subject, profile.Email, doc)
	if err != nil {
		return nil, services.WrapInternal("failed to save profile", err)
	}

	s.logger.Info("profile updated", zap.String("user_id", subject))
	services.RecordAudit(ctx, s.auditor, s.logger,
		models.NewAuditEvent(subject, models.AuditActionProfileUpdated, "user").WithResource(subject))
	return user, nil
}

// SubmitKYC stores the identity document for review. The referenced upload
// must live under the caller's own upload prefix.
func (s *Service) SubmitKYC(ctx context.Context, subject string, submission *models.KYCSubmission) (*models.User, error) {
	if submission == nil {
		return nil, services.ErrInvalidInput
	}

	if !strings.HasPrefix(submission.DocumentKey, models.UploadPrefix(subject)) {
		return nil, services.NewDomainError(services.ErrorTypeForbidden, "document does not belong to caller", nil).
			WithDetail("document_key", submission.DocumentKey)
	}

	user, err := s.Get(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user.KYCStatus == models.KYCStatusVerified {
		return nil, services.ErrKYCAlreadyVerified
	}

	doc, err := json.Marshal(submission)
	if err != nil {
		return nil, services.WrapInternal("failed to encode kyc document", err)
	}

	updated, err := s.users.SubmitKYC(ctx, subject, doc)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to submit kyc", err)
	}

	s.logger.Info("kyc submitted",
		zap.String("user_id", subject),
		zap.String("document_type", submission.DocumentType),
	)
	services.RecordAudit(ctx, s.auditor, s.logger,
		models.NewAuditEvent(subject, models.AuditActionKYCSubmitted, "user").
			WithResource(subject).
			WithDetails(map[string]string{
				"document_type": submission.DocumentType,
				"document_key":  submission.DocumentKey,
			}))
	return updated, nil
}
