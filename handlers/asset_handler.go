package handlers

import (
	"context"
	"net/http"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// AssetService lists holdings
type AssetService interface {
	List(ctx context.Context, subject string) ([]*models.Asset, error)
}

// AnalyticsService returns platform aggregates
type AnalyticsService interface {
	Get(ctx context.Context) (*models.PlatformAnalytics, error)
}

// AssetHandler handles holdings and admin analytics
type AssetHandler struct {
	assets    AssetService
	analytics AnalyticsService
	logger    *zap.Logger
}

// NewAssetHandler creates a new AssetHandler
func NewAssetHandler(assets AssetService, analytics AnalyticsService, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{
		assets:    assets,
		analytics: analytics,
		logger:    logger,
	}
}

// HandleList handles GET /api/v1/assets
func (h *AssetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	subject, ok := requireSubject(w, r, h.logger)
	if !ok {
		return
	}

	holdings, err := h.assets.List(r.Context(), subject)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteOK(w, holdings), h.logger)
}

// HandleAnalytics handles GET /api/v1/admin/analytics
func (h *AssetHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.analytics.Get(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOrLog(utils.WriteOK(w, a), h.logger)
}
