package requests

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"github.com/upb/tradedesk/services"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Service handles transaction request submission and admin review
type Service struct {
	users    repositories.UserRepository
	requests repositories.TransactionRequestRepository
	assets   repositories.AssetRepository
	txMgr    repositories.TransactionManager
	auditor  services.Auditor
	logger   *zap.Logger
}

// NewService creates a new transaction request service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, logger *zap.Logger) *Service {
	return &Service{
		users:    repos.Users,
		requests: repos.TransactionRequests,
		assets:   repos.Assets,
		txMgr:    txMgr,
		auditor:  services.NoopAuditor(),
		logger:   logger,
	}
}

// WithAuditor sets where submissions and review decisions are recorded
func (s *Service) WithAuditor(a services.Auditor) *Service {
	s.auditor = a
	return s
}

// Create submits a pending request on behalf of subject. Buy, sell and
// withdrawal requests need a verified KYC status.
func (s *Service) Create(ctx context.Context, subject string, input *models.CreateTransactionRequestInput) (*models.TransactionRequest, error) {
	if input == nil {
		return nil, services.ErrInvalidInput
	}

	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "create a profile before submitting requests", nil)
		}
		return nil, services.WrapInternal("failed to load user", err)
	}

	if input.Type.RequiresVerifiedKYC() && !user.CanTrade() {
		return nil, services.NewDomainError(services.ErrorTypeForbidden, services.ErrKYCRequired.Message, nil).
			WithDetail("kyc_status", string(user.KYCStatus)).
			WithDetail("type", string(input.Type))
	}

	req := models.NewTransactionRequest(subject, input.Type, input.Asset, input.Amount, input.Note)
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, services.WrapInternal("failed to create transaction request", err)
	}

	s.logger.Info("transaction request submitted",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", subject),
		zap.String("type", string(req.Type)),
		zap.String("asset", req.Asset),
	)
	services.RecordAudit(ctx, s.auditor, s.logger,
		models.NewAuditEvent(subject, models.AuditActionRequestCreated, "transaction_request").
			WithResource(req.ID.String()).
			WithDetails(map[string]interface{}{
				"type":   req.Type,
				"asset":  req.Asset,
				"amount": req.Amount,
			}))
	return req, nil
}

// List returns subject's requests, newest first. Out of range limits fall
// back to DefaultPageSize or are capped at MaxPageSize.
func (s *Service) List(ctx context.Context, subject string, limit, offset int) ([]*models.TransactionRequest, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	reqs, err := s.requests.GetByUserID(ctx, subject, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list transaction requests", err)
	}
	return reqs, nil
}

// UpdateStatus records reviewer's decision on a pending request. Approval
// applies the request to the owner's holdings in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, reviewer string, id uuid.UUID, status models.RequestStatus) (*models.TransactionRequest, error) {
	if !status.IsFinal() {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "status must be approved or rejected", nil).
			WithDetail("status", string(status))
	}

	reviewed, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.TransactionRequest, error) {
		req, err := s.requests.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrRequestNotFound
			}
			return nil, services.WrapInternal("failed to load transaction request", err)
		}

		if req.Status.IsFinal() {
			return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrRequestAlreadyReviewed.Message, nil).
				WithDetail("status", string(req.Status))
		}

		if status == models.RequestStatusApproved {
			if err := s.applyToHoldings(ctx, req); err != nil {
				return nil, err
			}
		}

		if err := s.requests.UpdateStatus(ctx, id, status, reviewer); err != nil {
			return nil, services.WrapInternal("failed to update transaction request", err)
		}

		req.Status = status
		req.ReviewedBy = reviewer

		s.logger.Info("transaction request reviewed",
			zap.String("request_id", id.String()),
			zap.String("status", string(status)),
			zap.String("reviewed_by", reviewer),
		)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	// Recorded only once the decision is committed
	action := models.AuditActionRequestRejected
	if status == models.RequestStatusApproved {
		action = models.AuditActionRequestApproved
	}
	services.RecordAudit(ctx, s.auditor, s.logger,
		models.NewAuditEvent(reviewer, action, "transaction_request").
			WithResource(id.String()).
			WithDetails(map[string]interface{}{
				"owner":  reviewed.UserID,
				"type":   reviewed.Type,
				"asset":  reviewed.Asset,
				"amount": reviewed.Amount,
			}))
	return reviewed, nil
}

func (s *Service) applyToHoldings(ctx context.Context, req *models.TransactionRequest) error {
	delta := req.Amount
	if req.Type == models.TransactionTypeSell || req.Type == models.TransactionTypeWithdrawal {
		delta = -delta
	}

	if err := s.assets.AdjustQuantity(ctx, req.UserID, req.Asset, delta); err != nil {
		if errors.Is(err, repositories.ErrInsufficientQuantity) {
			return services.NewDomainError(services.ErrorTypeConflict, services.ErrInsufficientHoldings.Message, nil).
				WithDetail("asset", req.Asset)
		}
		return services.WrapInternal("failed to adjust holdings", err)
	}
	return nil
}
