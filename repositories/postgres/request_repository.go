package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"go.uber.org/zap"
)

// TransactionRequestRepository implements the repositories.TransactionRequestRepository interface
type TransactionRequestRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionRequestRepository creates a new transaction request repository
func NewTransactionRequestRepository(db *DB, logger *zap.Logger) repositories.TransactionRequestRepository {
	return &TransactionRequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `id, user_id, type, asset, amount, status, note, reviewed_by, created_at, updated_at`

// Create creates a new request
func (r *TransactionRequestRepository) Create(ctx context.Context, req *models.TransactionRequest) error {
	query := `
		INSERT INTO transaction_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.Type,
		req.Asset,
		req.Amount,
		req.Status,
		req.Note,
		req.ReviewedBy,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction request: %w", err)
	}

	r.logger.Debug("transaction request created",
		zap.String("id", req.ID.String()),
		zap.String("user_id", req.UserID),
		zap.String("type", string(req.Type)),
	)
	return nil
}

// GetByID retrieves a request by ID. Inside a transaction the row is locked
// until commit so concurrent reviews serialize.
func (r *TransactionRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TransactionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM transaction_requests WHERE id = $1`
	if inTransaction(ctx) {
		query += ` FOR UPDATE`
	}

	executor := GetExecutor(ctx, r.db)
	req := &models.TransactionRequest{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.UserID,
		&req.Type,
		&req.Asset,
		&req.Amount,
		&req.Status,
		&req.Note,
		&req.ReviewedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction request %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction request: %w", err)
	}

	return req, nil
}

// GetByUserID retrieves a user's requests, newest first
func (r *TransactionRequestRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.TransactionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM transaction_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.TransactionRequest, 0)
	for rows.Next() {
		req := &models.TransactionRequest{}
		if err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.Type,
			&req.Asset,
			&req.Amount,
			&req.Status,
			&req.Note,
			&req.ReviewedBy,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction requests: %w", err)
	}

	return requests, nil
}

// UpdateStatus records a review decision
func (r *TransactionRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RequestStatus, reviewedBy string) error {
	query := `
		UPDATE transaction_requests
		SET status = $2, reviewed_by = $3, updated_at = NOW()
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, status, reviewedBy)
	if err != nil {
		return fmt.Errorf("failed to update transaction request status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction request %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Info("transaction request reviewed",
		zap.String("id", id.String()),
		zap.String("status", string(status)),
		zap.String("reviewed_by", reviewedBy),
	)
	return nil
}
