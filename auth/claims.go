package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Well-known roles
const (
	RoleAdmin  = "admin"
	RoleTrader = "trader"
)

// Claims is the decoded payload of a bearer token
type Claims struct {
	Subject  string
	Roles    []string
	Issuer   string
	Audience []string

	IssuedAt  time.Time
	ExpiresAt time.Time

	// MigrationStatus is carried through untouched for downstream handlers
	MigrationStatus string
}

// HasRole reports exact membership of role in c.Roles.
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// tokenClaims is the on-the-wire JWT payload
type tokenClaims struct {
	Roles           []string `json:"roles,omitempty"`
	MigrationStatus string   `json:"migration_status,omitempty"`
	jwt.RegisteredClaims
}

func toTokenClaims(c *Claims) *tokenClaims {
	tc := &tokenClaims{
		MigrationStatus: c.MigrationStatus,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    c.Issuer,
			IssuedAt:  numericDate(c.IssuedAt),
			ExpiresAt: numericDate(c.ExpiresAt),
		},
	}
	if len(c.Roles) > 0 {
		tc.Roles = append([]string(nil), c.Roles...)
	}
	if len(c.Audience) > 0 {
		tc.Audience = jwt.ClaimStrings(append([]string(nil), c.Audience...))
	}
	return tc
}

func (tc *tokenClaims) toClaims() *Claims {
	c := &Claims{
		Subject:         tc.Subject,
		Issuer:          tc.Issuer,
		MigrationStatus: tc.MigrationStatus,
	}
	if len(tc.Roles) > 0 {
		c.Roles = tc.Roles
	}
	if len(tc.Audience) > 0 {
		c.Audience = []string(tc.Audience)
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c
}

func numericDate(t time.Time) *jwt.NumericDate {
	if t.IsZero() {
		return nil
	}
	return jwt.NewNumericDate(t)
}
