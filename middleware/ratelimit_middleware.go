package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/tradedesk/services/ratelimit"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// SubmissionLimiter defines the interface for per-subject rate limiting
type SubmissionLimiter interface {
	CheckLimit(ctx context.Context, subject string) (*ratelimit.Result, error)
	RecordRequest(ctx context.Context, subject string) error
}

// RateLimitMiddleware limits how often a subject may submit transaction requests
type RateLimitMiddleware struct {
	limiter SubmissionLimiter
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter SubmissionLimiter, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// LimitSubmissions rejects requests over the subject's limits with 429.
// Must run after RequireAuth; only successful submissions are recorded.
func (m *RateLimitMiddleware) LimitSubmissions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		subject := GetSubjectFromContext(ctx)
		if subject == "" {
			m.logger.Error("claims not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		result, err := m.limiter.CheckLimit(ctx, subject)
		if err != nil {
			m.logger.Error("failed to check rate limit",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "Failed to check rate limit")
			return
		}

		if !result.Allowed {
			m.logger.Warn("request blocked by rate limit",
				zap.String("request_id", requestID),
				zap.String("sub", subject),
				zap.String("window", string(result.ViolatedWindow)),
				zap.String("reason", result.ViolationReason))

			details := map[string]interface{}{
				"window":             string(result.ViolatedWindow),
				"requests_remaining": result.RequestsRemaining,
				"reset_at":           result.ResetAt.Format(time.RFC3339),
			}
			_ = utils.WriteTooManyRequests(w, result.ViolationReason, details)
			return
		}

		if result.RequestsRemaining >= 0 {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.RequestsRemaining))
			w.Header().Set("X-RateLimit-Reset", result.ResetAt.Format(time.RFC3339))
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if ww.Status() < http.StatusBadRequest {
			if err := m.limiter.RecordRequest(ctx, subject); err != nil {
				m.logger.Error("failed to record rate limited request",
					zap.String("request_id", requestID),
					zap.Error(err))
			}
		}
	})
}
