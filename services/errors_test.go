package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "user not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "user not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "user not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: user not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    NewDomainError(ErrorTypeNotFound, "not found", nil),
			target: ErrRequestNotFound,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeValidation, "validation", nil),
			target: ErrRequestNotFound,
			want:   false,
		},
		{
			name:   "not a domain error",
			err:    NewDomainError(ErrorTypeNotFound, "not found", nil),
			target: errors.New("regular error"),
			want:   false,
		},
		{
			name:   "wrapped with fmt",
			err:    fmt.Errorf("approve: %w", ErrRequestAlreadyReviewed),
			target: ErrInsufficientHoldings,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "amount").WithDetail("value", -1)

	assert.Equal(t, "amount", err.Details["field"])
	assert.Equal(t, -1, err.Details["value"])
}

func TestDomainError_WithDetailOnNilMap(t *testing.T) {
	err := &DomainError{Type: ErrorTypeConflict, Message: "conflict"}
	err.WithDetail("status", "approved")
	assert.Equal(t, "approved", err.Details["status"])
}

func TestTypeCheckers(t *testing.T) {
	typeCheckers := map[ErrorType]func(error) bool{
		ErrorTypeUnauthenticated: IsUnauthenticatedError,
		ErrorTypeUnauthorized:    IsUnauthorizedError,
		ErrorTypeForbidden:       IsForbiddenError,
		ErrorTypeValidation:      IsValidationError,
		ErrorTypeNotFound:        IsNotFoundError,
		ErrorTypeConflict:        IsConflictError,
		ErrorTypeInternal:        IsInternalError,
		ErrorTypeExternal:        IsExternalError,
	}

	for errType, checker := range typeCheckers {
		t.Run(string(errType), func(t *testing.T) {
			err := NewDomainError(errType, "test error", nil)
			assert.True(t, checker(err))
			assert.True(t, checker(fmt.Errorf("context: %w", err)))
			assert.False(t, checker(errors.New("plain")))
			assert.False(t, checker(nil))

			for other, otherChecker := range typeCheckers {
				if other != errType {
					assert.False(t, otherChecker(err), "%s matched %s", errType, other)
				}
			}
		})
	}
}

func TestSentinelTypes(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{ErrUnauthenticated, ErrorTypeUnauthenticated},
		{ErrUnauthorized, ErrorTypeUnauthorized},
		{ErrForbidden, ErrorTypeForbidden},
		{ErrKYCRequired, ErrorTypeForbidden},
		{ErrInvalidInput, ErrorTypeValidation},
		{ErrUserNotFound, ErrorTypeNotFound},
		{ErrRequestNotFound, ErrorTypeNotFound},
		{ErrRequestAlreadyReviewed, ErrorTypeConflict},
		{ErrKYCAlreadyVerified, ErrorTypeConflict},
		{ErrInsufficientHoldings, ErrorTypeConflict},
		{ErrInternal, ErrorTypeInternal},
		{ErrStorageUnavailable, ErrorTypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestGetErrorType_NonDomain(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)
	err.WithDetail("field", "asset").WithDetail("reason", "invalid format")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "asset", details["field"])
	assert.Equal(t, "invalid format", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapError(t *testing.T) {
	baseErr := errors.New("base error")
	wrapped := WrapError(ErrorTypeConflict, "wrapped message", baseErr)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeConflict, domainErr.Type)
	assert.Equal(t, "wrapped message", domainErr.Message)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("database connection failed")
	wrapped := WrapInternal("failed to load user", baseErr)

	assert.True(t, IsInternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapExternal(t *testing.T) {
	baseErr := errors.New("s3 presign failed")
	wrapped := WrapExternal("failed to sign upload", baseErr)

	assert.True(t, IsExternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}
