package auth

import (
	"errors"
	"time"
)

// Issuer mints tokens for a fixed issuer/audience pair. The API itself never
// issues tokens; this backs the mint-token tool and tests.
type Issuer struct {
	codec    *Codec
	issuer   string
	audience string
	lifetime time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer
func NewIssuer(codec *Codec, issuer, audience string, lifetime time.Duration) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	return &Issuer{
		codec:    codec,
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Issue signs a token for subject with the given roles
func (i *Issuer) Issue(subject string, roles []string, migrationStatus string) (string, *Claims, error) {
	if subject == "" {
		return "", nil, errors.New("subject is required")
	}
	now := i.now().Truncate(time.Second)
	claims := &Claims{
		Subject:         subject,
		Roles:           roles,
		Issuer:          i.issuer,
		Audience:        []string{i.audience},
		IssuedAt:        now,
		ExpiresAt:       now.Add(i.lifetime),
		MigrationStatus: migrationStatus,
	}
	token, err := i.codec.Encode(claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}
