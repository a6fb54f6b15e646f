package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized matches every verification failure. Callers that only need
	// to know "reject with 401" should check for this.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnauthenticated is returned when no bearer token was presented
	ErrUnauthenticated = errors.New("no bearer token presented")

	// ErrMalformed is returned when the token is not a three-segment JWS or a
	// segment does not decode to JSON of the expected shape
	ErrMalformed = errors.New("malformed token")

	// ErrInvalidSignature is returned when the recomputed MAC does not match
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrExpired is returned when exp is not strictly after the verification time
	ErrExpired = errors.New("token expired")

	// ErrInvalidClaims is returned when issuer or audience do not match configuration
	ErrInvalidClaims = errors.New("invalid token claims")
)

// VerificationError classifies why a token was rejected. The Kind is meant for
// server-side logs and metrics only; responses must stay generic.
type VerificationError struct {
	Kind error
	Err  error
}

func newVerificationError(kind, err error) *VerificationError {
	return &VerificationError{Kind: kind, Err: err}
}

// Error implements the error interface
func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Unwrap returns the underlying cause
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrUnauthorized and for the error's own Kind.
func (e *VerificationError) Is(target error) bool {
	return target == ErrUnauthorized || target == e.Kind
}

// FailureReason returns a stable label for a verification failure, suitable as
// a metrics label value.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidClaims):
		return "invalid_claims"
	default:
		return "unknown"
	}
}
