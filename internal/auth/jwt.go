// Package auth issues and validates the signed, time-limited bearer tokens
// that bind a session to a user id.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSigningAlgorithm is HMAC-SHA256.
const DefaultSigningAlgorithm = "HS256"

var supportedAlgorithms = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// TokenIssuer signs tokens carrying a subject and an absolute expiry.
// Secret and algorithm are process-wide settings fixed at construction.
type TokenIssuer struct {
	method   jwt.SigningMethod
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenIssuer returns an issuer for the named HMAC algorithm.
func NewTokenIssuer(secret []byte, algorithm string, validity time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: token secret is empty", common.ErrorInvalidInput)
	}
	method, ok := supportedAlgorithms[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", common.ErrorInvalidInput, algorithm)
	}
	if validity <= 0 {
		return nil, fmt.Errorf("%w: token validity must be positive", common.ErrorInvalidInput)
	}

	return &TokenIssuer{
		method:   method,
		secret:   append([]byte(nil), secret...),
		validity: validity,
		now:      time.Now,
	}, nil
}

// Issue returns a compact signed token for subjectID.
func (i *TokenIssuer) Issue(subjectID string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrorInvalidInput)
	}
	now := i.now()

	token := jwt.NewWithClaims(i.method, jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm and expiry and returns the subject.
// Every failure is ErrorUnauthenticated. The subject is untrusted until it
// has been resolved to a stored user.
func (i *TokenIssuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", common.ErrorUnauthenticated
	}

	if claims.Subject == "" {
		return "", common.ErrorUnauthenticated
	}
	return claims.Subject, nil
}
