package assets

import (
	"context"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"github.com/upb/tradedesk/services"
	"go.uber.org/zap"
)

// Service exposes a user's holdings
type Service struct {
	assets repositories.AssetRepository
	logger *zap.Logger
}

// NewService creates a new asset service
func NewService(assets repositories.AssetRepository, logger *zap.Logger) *Service {
	return &Service{
		assets: assets,
		logger: logger,
	}
}

// List returns subject's holdings ordered by symbol
func (s *Service) List(ctx context.Context, subject string) ([]*models.Asset, error) {
	holdings, err := s.assets.GetByUserID(ctx, subject)
	if err != nil {
		return nil, services.WrapInternal("failed to list assets", err)
	}
	return holdings, nil
}
