package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"go.uber.org/zap"
)

// AssetRepository implements the repositories.AssetRepository interface
type AssetRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB, logger *zap.Logger) repositories.AssetRepository {
	return &AssetRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserID retrieves a user's holdings ordered by symbol
func (r *AssetRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Asset, error) {
	query := `
		SELECT id, user_id, symbol, quantity, updated_at
		FROM assets
		WHERE user_id = $1
		ORDER BY symbol
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*models.Asset, 0)
	for rows.Next() {
		asset := &models.Asset{}
		if err := rows.Scan(&asset.ID, &asset.UserID, &asset.Symbol, &asset.Quantity, &asset.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// AdjustQuantity adds delta to a holding. Credits upsert the row; debits only
// apply when the holding covers them.
func (r *AssetRepository) AdjustQuantity(ctx context.Context, userID, symbol string, delta float64) error {
	executor := GetExecutor(ctx, r.db)

	if delta >= 0 {
		query := `
			INSERT INTO assets (id, user_id, symbol, quantity, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (user_id, symbol) DO UPDATE
			SET quantity = assets.quantity + EXCLUDED.quantity,
			    updated_at = NOW()
		`
		if _, err := executor.ExecContext(ctx, query, uuid.New(), userID, symbol, delta); err != nil {
			return fmt.Errorf("failed to credit asset: %w", err)
		}
	} else {
		query := `
			UPDATE assets
			SET quantity = quantity + $3, updated_at = NOW()
			WHERE user_id = $1 AND symbol = $2 AND quantity + $3 >= 0
		`
		result, err := executor.ExecContext(ctx, query, userID, symbol, delta)
		if err != nil {
			return fmt.Errorf("failed to debit asset: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%s for %s: %w", symbol, userID, repositories.ErrInsufficientQuantity)
		}
	}

	r.logger.Debug("asset adjusted",
		zap.String("user_id", userID),
		zap.String("symbol", symbol),
		zap.Float64("delta", delta),
	)
	return nil
}
