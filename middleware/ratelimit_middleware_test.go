package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/tradedesk/auth"
	"github.com/upb/tradedesk/services/ratelimit"
	"go.uber.org/zap"
)

// MockSubmissionLimiter is a mock implementation of SubmissionLimiter
type MockSubmissionLimiter struct {
	mock.Mock
}

func (m *MockSubmissionLimiter) CheckLimit(ctx context.Context, subject string) (*ratelimit.Result, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ratelimit.Result), args.Error(1)
}

func (m *MockSubmissionLimiter) RecordRequest(ctx context.Context, subject string) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

func authedRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", nil)
	return req.WithContext(WithClaims(req.Context(), &auth.Claims{Subject: "user_1", Roles: []string{auth.RoleTrader}}))
}

func TestLimitSubmissions(t *testing.T) {
	logger := zap.NewNop()
	resetAt := time.Date(2024, 1, 15, 14, 31, 0, 0, time.UTC)

	t.Run("allowed request is recorded", func(t *testing.T) {
		limiter := new(MockSubmissionLimiter)
		limiter.On("CheckLimit", mock.Anything, "user_1").
			Return(&ratelimit.Result{Allowed: true, RequestsRemaining: 4, ResetAt: resetAt}, nil)
		limiter.On("RecordRequest", mock.Anything, "user_1").Return(nil)

		m := NewRateLimitMiddleware(limiter, logger)
		handler := m.LimitSubmissions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, authedRequest())

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "2024-01-15T14:31:00Z", w.Header().Get("X-RateLimit-Reset"))
		limiter.AssertExpectations(t)
	})

	t.Run("failed submission is not recorded", func(t *testing.T) {
		limiter := new(MockSubmissionLimiter)
		limiter.On("CheckLimit", mock.Anything, "user_1").
			Return(&ratelimit.Result{Allowed: true, RequestsRemaining: -1}, nil)

		m := NewRateLimitMiddleware(limiter, logger)
		handler := m.LimitSubmissions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, authedRequest())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
		limiter.AssertNotCalled(t, "RecordRequest", mock.Anything, mock.Anything)
	})

	t.Run("exceeded limit returns 429", func(t *testing.T) {
		limiter := new(MockSubmissionLimiter)
		limiter.On("CheckLimit", mock.Anything, "user_1").Return(&ratelimit.Result{
			Allowed:         false,
			ResetAt:         resetAt,
			ViolatedWindow:  ratelimit.WindowMinute,
			ViolationReason: "exceeded 5 requests per minute",
		}, nil)

		m := NewRateLimitMiddleware(limiter, logger)
		handler := m.LimitSubmissions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, authedRequest())

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "rate_limit_exceeded", resp.Error)
		assert.Equal(t, "minute", resp.Details["window"])
	})

	t.Run("limiter error returns 500", func(t *testing.T) {
		limiter := new(MockSubmissionLimiter)
		limiter.On("CheckLimit", mock.Anything, "user_1").Return(nil, errors.New("db down"))

		m := NewRateLimitMiddleware(limiter, logger)
		handler := m.LimitSubmissions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, authedRequest())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("anonymous request returns 401", func(t *testing.T) {
		m := NewRateLimitMiddleware(new(MockSubmissionLimiter), logger)
		handler := m.LimitSubmissions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/requests", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
