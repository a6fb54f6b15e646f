package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// VerifierConfig holds the expected token binding
type VerifierConfig struct {
	Issuer   string
	Audience string
}

// VerifierOption customizes a Verifier
type VerifierOption func(*Verifier)

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// Verifier validates bearer tokens against static configuration. It holds no
// mutable state and performs no I/O.
type Verifier struct {
	codec    *Codec
	issuer   string
	audience string
	now      func() time.Time
}

// NewVerifier creates a verifier bound to an issuer and audience
func NewVerifier(codec *Codec, cfg VerifierConfig, opts ...VerifierOption) (*Verifier, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("expected issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("expected audience is required")
	}

	v := &Verifier{
		codec:    codec,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify decodes token and checks expiry, issuer and audience. Every failure
// matches ErrUnauthorized; the specific kind is available through errors.Is
// or FailureReason. A cancelled ctx returns ctx.Err() as is.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, newVerificationError(ErrUnauthenticated, nil)
	}

	claims, err := v.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	now := v.now()
	if claims.ExpiresAt.IsZero() {
		return nil, newVerificationError(ErrExpired, errors.New("exp claim missing"))
	}
	if !now.Before(claims.ExpiresAt) {
		return nil, newVerificationError(ErrExpired,
			fmt.Errorf("expired at %s", claims.ExpiresAt.UTC().Format(time.RFC3339)))
	}

	if claims.Issuer != v.issuer {
		return nil, newVerificationError(ErrInvalidClaims,
			fmt.Errorf("issuer %q does not match", claims.Issuer))
	}
	if !slices.Contains(claims.Audience, v.audience) {
		return nil, newVerificationError(ErrInvalidClaims,
			fmt.Errorf("audience %v does not include %q", claims.Audience, v.audience))
	}

	return claims, nil
}
