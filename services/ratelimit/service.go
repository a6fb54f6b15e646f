package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Window represents the time window for rate limiting
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Limits caps submissions per window. Zero disables a window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Enabled reports whether any window is limited
func (l Limits) Enabled() bool {
	return l.PerMinute > 0 || l.PerHour > 0 || l.PerDay > 0
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed           bool
	RequestsRemaining int
	ResetAt           time.Time
	ViolatedWindow    Window
	ViolationReason   string
}

// Service limits transaction request submissions per subject using PostgreSQL
type Service struct {
	db     *sql.DB
	limits Limits
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new rate limit Service
func NewService(db *sql.DB, limits Limits, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
}

// CheckLimit checks whether subject may submit another request.
// Uses a sliding window count over rate_limit_events.
func (s *Service) CheckLimit(ctx context.Context, subject string) (*Result, error) {
	if !s.limits.Enabled() {
		return &Result{Allowed: true, RequestsRemaining: -1}, nil
	}

	scopeKey := buildScopeKey(subject)
	now := s.now()

	windows := []struct {
		window Window
		limit  int
	}{
		{WindowMinute, s.limits.PerMinute},
		{WindowHour, s.limits.PerHour},
		{WindowDay, s.limits.PerDay},
	}

	result := &Result{Allowed: true, RequestsRemaining: -1}
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		allowed, remaining, resetAt, err := s.checkWindow(ctx, scopeKey, w.window, now, w.limit)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s window: %w", w.window, err)
		}
		if !allowed {
			return &Result{
				Allowed:           false,
				RequestsRemaining: 0,
				ResetAt:           resetAt,
				ViolatedWindow:    w.window,
				ViolationReason:   fmt.Sprintf("exceeded %d requests per %s", w.limit, w.window),
			}, nil
		}
		// Report the tightest window
		if result.RequestsRemaining < 0 || remaining < result.RequestsRemaining {
			result.RequestsRemaining = remaining
			result.ResetAt = resetAt
		}
	}

	return result, nil
}

// RecordRequest records a submission for subject
func (s *Service) RecordRequest(ctx context.Context, subject string) error {
	if !s.limits.Enabled() {
		return nil
	}

	query := `
		INSERT INTO rate_limit_events (scope_key, timestamp)
		VALUES ($1, $2)
	`

	if _, err := s.db.ExecContext(ctx, query, buildScopeKey(subject), s.now()); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// checkWindow checks if the limit is exceeded for a specific time window
func (s *Service) checkWindow(ctx context.Context, scopeKey string, window Window, now time.Time, limit int) (allowed bool, remaining int, resetAt time.Time, err error) {
	windowStart, resetAt := getWindowBounds(now, window)

	query := `
		SELECT COUNT(*)
		FROM rate_limit_events
		WHERE scope_key = $1
		  AND timestamp >= $2
		  AND timestamp < $3
	`

	var count int
	if err = s.db.QueryRowContext(ctx, query, scopeKey, windowStart, now).Scan(&count); err != nil {
		return false, 0, resetAt, fmt.Errorf("failed to query rate limit: %w", err)
	}

	if count >= limit {
		return false, 0, resetAt, nil
	}
	return true, limit - count, resetAt, nil
}

// getWindowBounds returns the start and reset time for a time window
func getWindowBounds(now time.Time, window Window) (start time.Time, reset time.Time) {
	switch window {
	case WindowMinute:
		start = now.Add(-1 * time.Minute)
		reset = now.Truncate(time.Minute).Add(time.Minute)
	case WindowHour:
		start = now.Add(-1 * time.Hour)
		reset = now.Truncate(time.Hour).Add(time.Hour)
	case WindowDay:
		start = now.Add(-24 * time.Hour)
		reset = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
	return start, reset
}

func buildScopeKey(subject string) string {
	return fmt.Sprintf("user:%s:requests", subject)
}

// CleanupOldRequests removes events older than the given age
func (s *Service) CleanupOldRequests(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := s.now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_events WHERE timestamp < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old requests: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("cleaned up old rate limit events",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("cutoff_time", cutoffTime))

	return rowsAffected, nil
}

// StartCleanupWorker periodically removes old events until ctx is done
func (s *Service) StartCleanupWorker(ctx context.Context, interval time.Duration, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldRequests(ctx, retention); err != nil {
				s.logger.Error("failed to cleanup old requests", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}
