package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"go.uber.org/zap"
)

// AnalyticsRepository implements the repositories.AnalyticsRepository interface
type AnalyticsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *DB, logger *zap.Logger) repositories.AnalyticsRepository {
	return &AnalyticsRepository{
		db:     db,
		logger: logger,
	}
}

// GetPlatformAnalytics aggregates user and request counts plus approved volume per type
func (r *AnalyticsRepository) GetPlatformAnalytics(ctx context.Context) (*models.PlatformAnalytics, error) {
	executor := GetExecutor(ctx, r.db)
	a := &models.PlatformAnalytics{
		VolumeByType: make(map[string]float64),
		GeneratedAt:  time.Now().UTC(),
	}

	userQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE kyc_status = 'verified'),
			COUNT(*) FILTER (WHERE kyc_status = 'submitted')
		FROM users
	`
	if err := executor.QueryRowContext(ctx, userQuery).Scan(&a.TotalUsers, &a.VerifiedUsers, &a.PendingKYC); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	requestQuery := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM transaction_requests
	`
	if err := executor.QueryRowContext(ctx, requestQuery).Scan(&a.PendingRequests, &a.ApprovedRequests, &a.RejectedRequests); err != nil {
		return nil, fmt.Errorf("failed to count transaction requests: %w", err)
	}

	volumeQuery := `
		SELECT type, COALESCE(SUM(amount), 0)
		FROM transaction_requests
		WHERE status = 'approved'
		GROUP BY type
	`
	rows, err := executor.QueryContext(ctx, volumeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to sum volume: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txType string
			volume float64
		)
		if err := rows.Scan(&txType, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan volume: %w", err)
		}
		a.VolumeByType[txType] = volume
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volume: %w", err)
	}

	r.logger.Debug("platform analytics computed",
		zap.Int("total_users", a.TotalUsers),
		zap.Int("pending_requests", a.PendingRequests),
	)
	return a, nil
}
