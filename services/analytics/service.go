package analytics

import (
	"context"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"github.com/upb/tradedesk/services"
	"go.uber.org/zap"
)

// Cache stores the most recent platform analytics snapshot
type Cache interface {
	Get(ctx context.Context) (*models.PlatformAnalytics, bool, error)
	Set(ctx context.Context, a *models.PlatformAnalytics) error
	Invalidate(ctx context.Context) error
}

// Metrics records cache outcomes
type Metrics interface {
	RecordCacheResult(result string)
}

type noopMetrics struct{}

func (noopMetrics) RecordCacheResult(string) {}

// Service serves admin analytics, read-through a cache
type Service struct {
	repo    repositories.AnalyticsRepository
	cache   Cache
	metrics Metrics
	logger  *zap.Logger
}

// NewService creates a new analytics service. cache and metrics may be nil.
func NewService(repo repositories.AnalyticsRepository, cache Cache, metrics Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Get returns platform analytics. Cache failures degrade to a database read.
func (s *Service) Get(ctx context.Context) (*models.PlatformAnalytics, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.metrics.RecordCacheResult("error")
			s.logger.Warn("analytics cache read failed", zap.Error(err))
		case ok:
			s.metrics.RecordCacheResult("hit")
			return cached, nil
		default:
			s.metrics.RecordCacheResult("miss")
		}
	}

	a, err := s.repo.GetPlatformAnalytics(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to compute analytics", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, a); err != nil {
			s.logger.Warn("analytics cache write failed", zap.Error(err))
		}
	}
	return a, nil
}

// Invalidate drops the cached snapshot after a write that changes the aggregates
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("analytics cache invalidation failed", zap.Error(err))
	}
}
