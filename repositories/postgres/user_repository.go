package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"go.uber.org/zap"
)

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, email, roles, kyc_status, profile, kyc_document, created_at, updated_at`

// GetByID retrieves a user by subject
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpsertProfile replaces the profile document, creating the user if needed
func (r *UserRepository) UpsertProfile(ctx context.Context, id, email string, profile json.RawMessage) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, profile, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    profile = EXCLUDED.profile,
		    updated_at = NOW()
		RETURNING ` + userColumns

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, id, email, []byte(profile)))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	r.logger.Debug("profile updated", zap.String("user_id", id))
	return user, nil
}

// SubmitKYC stores the KYC document and moves the user to submitted
func (r *UserRepository) SubmitKYC(ctx context.Context, id string, document json.RawMessage) (*models.User, error) {
	query := `
		UPDATE users
		SET kyc_document = $2, kyc_status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, id, []byte(document), models.KYCStatusSubmitted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to submit kyc: %w", err)
	}

	r.logger.Info("kyc submitted", zap.String("user_id", id))
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var (
		roles       pq.StringArray
		profile     []byte
		kycDocument []byte
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&roles,
		&user.KYCStatus,
		&profile,
		&kycDocument,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Roles = []string(roles)
	if len(profile) > 0 {
		user.Profile = json.RawMessage(profile)
	}
	if len(kycDocument) > 0 {
		user.KYCDocument = json.RawMessage(kycDocument)
	}
	return user, nil
}
