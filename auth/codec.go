package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and decodes HS256 bearer tokens with a shared secret.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	secret []byte
	parser *jwt.Parser
}

// NewCodec creates a codec for the given signing secret
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	return &Codec{
		secret: append([]byte(nil), secret...),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Encode signs claims into a compact token string
func (c *Codec) Encode(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("claims are nil")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, toTokenClaims(claims))
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode checks structure and signature and returns the embedded claims.
// Expiry, issuer and audience are not checked here; see Verifier.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	tc := &tokenClaims{}
	token, err := c.parser.ParseWithClaims(tokenString, tc, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !token.Valid {
		return nil, newVerificationError(ErrInvalidSignature, nil)
	}
	return tc.toClaims(), nil
}

// classifyParseError maps jwt parse failures onto our failure kinds. The
// signature comparison inside jwt uses hmac.Equal, which is constant time.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newVerificationError(ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newVerificationError(ErrInvalidSignature, err)
	default:
		return newVerificationError(ErrMalformed, err)
	}
}
