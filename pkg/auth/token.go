package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

var (
	ErrSubjectRequired = errors.New("token subject is required")
	ErrInvalidRole     = errors.New("token role is not recognized")
)

// MintIdentityToken signs a token the way the identity provider does. The API
// only verifies tokens; this exists for local tooling and tests.
func MintIdentityToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, payload IdentityPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}
	if strings.TrimSpace(payload.Subject) == "" {
		return "", ErrSubjectRequired
	}
	if payload.Role != "" && !payload.Role.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, payload.Role)
	}

	registered := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   strings.TrimSpace(payload.Subject),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if cfg.Audience != "" {
		registered.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	claims := IdentityClaims{
		Email:            payload.Email,
		Name:             payload.Name,
		Role:             payload.Role,
		RegisteredClaims: registered,
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseIdentityToken validates signature, issuer, expiry (with the configured
// leeway) and, when configured, audience. now pins the validation clock.
func ParseIdentityToken(cfg config.JWTConfig, now time.Time, tokenString string) (*IdentityClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &IdentityClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrSubjectRequired
	}
	if claims.Role != "" && !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, claims.Role)
	}
	return claims, nil
}
