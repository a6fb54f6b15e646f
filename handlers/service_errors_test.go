package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tradedesk/services"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized", "Authentication required"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Invalid or expired token"},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, "forbidden", "insufficient permissions"},
		{"kyc required", services.ErrKYCRequired, http.StatusForbidden, "forbidden", "verified KYC required for this transaction type"},
		{"validation", services.ErrInvalidInput, http.StatusBadRequest, "bad_request", "invalid input"},
		{"not found", services.ErrRequestNotFound, http.StatusNotFound, "not_found", "transaction request not found"},
		{"conflict", services.ErrRequestAlreadyReviewed, http.StatusConflict, "conflict", "transaction request already reviewed"},
		{"external", services.ErrStorageUnavailable, http.StatusBadGateway, "bad_gateway", "object storage unavailable"},
		{"internal", services.WrapInternal("failed to load user", errors.New("pq: password authentication failed")), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error", "An unexpected error occurred"},
		{"unknown domain type", services.NewDomainError("mystery", "??", nil), http.StatusInternalServerError, "internal_error", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeErrorBody(t, rec)
			assert.Equal(t, tt.expectedError, body.Error)
			assert.Equal(t, tt.expectedMessage, body.Message)
			assert.NotContains(t, body.Message, "pq:")
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeConflict, "insufficient holdings", nil).WithDetail("asset", "BTC")

	rec := httptest.NewRecorder()
	HandleServiceError(rec, err, zap.NewNop())

	body := decodeErrorBody(t, rec)
	assert.Equal(t, "BTC", body.Details["asset"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleServiceError(rec, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestHandleValidationError(t *testing.T) {
	t.Run("field errors", func(t *testing.T) {
		_, err := utils.ParseUUID("nope", "id")
		rec := httptest.NewRecorder()
		HandleValidationError(rec, err, zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeErrorBody(t, rec)
		assert.Equal(t, "Validation failed", body.Message)
		assert.Contains(t, body.Details, "id")
	})

	t.Run("decode error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleValidationError(rec, errors.New("request body is empty"), zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "request body is empty", decodeErrorBody(t, rec).Message)
	})
}
