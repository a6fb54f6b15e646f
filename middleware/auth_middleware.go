package middleware

import (
	"context"
	"net/http"

	"github.com/upb/tradedesk/auth"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// TokenVerifier defines the interface for verifying bearer tokens
type TokenVerifier interface {
	// Verify checks a token and returns its claims
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthMetrics receives authentication and authorization outcomes
type AuthMetrics interface {
	RecordAuthFailure(reason string)
	RecordAuthzDenial(role string)
}

type noopAuthMetrics struct{}

func (noopAuthMetrics) RecordAuthFailure(string) {}
func (noopAuthMetrics) RecordAuthzDenial(string) {}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	verifier TokenVerifier
	metrics  AuthMetrics
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. metrics may be nil.
func NewAuthMiddleware(verifier TokenVerifier, metrics AuthMetrics, logger *zap.Logger) *AuthMiddleware {
	if metrics == nil {
		metrics = noopAuthMetrics{}
	}
	return &AuthMiddleware{
		verifier: verifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// RequireAuth is a middleware that requires a valid bearer token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token, ok := auth.ExtractBearer(r.Header)
		if !ok {
			m.metrics.RecordAuthFailure(auth.FailureReason(auth.ErrUnauthenticated))
			m.logger.Debug("missing bearer token",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		claims, err := m.verifier.Verify(ctx, token)
		if err != nil {
			// Client went away; nothing left to answer
			if ctx.Err() != nil {
				m.logger.Debug("request cancelled during token verification",
					zap.String("request_id", requestID),
					zap.Error(err))
				return
			}

			// The reason is logged but the response stays generic
			reason := auth.FailureReason(err)
			m.metrics.RecordAuthFailure(reason)
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.String("reason", reason),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.Strings("roles", claims.Roles))

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// RequireRole is a middleware that requires a specific role.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			claims := GetClaimsFromContext(ctx)
			if claims == nil {
				m.logger.Error("claims not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if auth.Authorize(claims, role) != auth.Allow {
				m.metrics.RecordAuthzDenial(role)
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("sub", claims.Subject),
					zap.String("required_role", role),
					zap.Strings("roles", claims.Roles))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			m.logger.Debug("role check passed",
				zap.String("request_id", requestID),
				zap.String("required_role", role))

			next.ServeHTTP(w, r)
		})
	}
}
