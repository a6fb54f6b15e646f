package postgres

import (
	"context"
	"fmt"

	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends an audit event
func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (
			id, actor, action, resource_type, resource_id, details, request_id, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var details []byte
	if len(event.Details) > 0 {
		details = event.Details
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		event.ID,
		event.Actor,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		details,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	r.logger.Debug("audit event inserted",
		zap.String("id", event.ID.String()),
		zap.String("action", string(event.Action)))
	return nil
}

// ListRecent returns up to limit events, newest first
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, actor, action, resource_type, resource_id, details, request_id, timestamp
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.AuditEvent, 0)
	for rows.Next() {
		var (
			e       models.AuditEvent
			details []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.Actor,
			&e.Action,
			&e.ResourceType,
			&e.ResourceID,
			&details,
			&e.RequestID,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(details) > 0 {
			e.Details = details
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}
