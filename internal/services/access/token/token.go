// Package token issues and validates the session tokens handed out when a
// gate session reaches the granted state.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
	"github.com/platewire/boardgate/internal/platform/id"
)

// DefaultTTL bounds a granted session when no TTL is configured.
const DefaultTTL = 12 * time.Hour

// tokenEnv holds raw env values before post-parse validation.
type tokenEnv struct {
	Issuer     string        `env:"BOARDGATE_TOKEN_ISSUER" envDefault:"boardgate"`
	Audience   string        `env:"BOARDGATE_TOKEN_AUDIENCE" envDefault:"boardgate-portal"`
	SigningKey string        `env:"BOARDGATE_TOKEN_SIGNING_KEY"`
	TTL        time.Duration `env:"BOARDGATE_TOKEN_TTL"`
}

// Config defines how session tokens are signed and verified.
type Config struct {
	Issuer   string
	Audience string
	Key      []byte
	TTL      time.Duration
	Now      func() time.Time
}

// Claims captures a validated session token.
type Claims struct {
	Issuer     string
	Audience   []string
	ExpiresAt  time.Time
	IssuedAt   time.Time
	JWTID      string
	Identifier string
	Method     string
}

// sessionClaims is the internal claims type used for JWT parsing.
type sessionClaims struct {
	jwt.RegisteredClaims
	Identifier string `json:"identifier"`
	Method     string `json:"method"`
}

// LoadConfigFromEnv reads token configuration. The signing key is required;
// everything else has a default.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw tokenEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse token env: %w", err)
	}
	key := strings.TrimSpace(raw.SigningKey)
	if key == "" {
		return Config{}, fmt.Errorf("BOARDGATE_TOKEN_SIGNING_KEY is required")
	}
	ttl := raw.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   strings.TrimSpace(raw.Issuer),
		Audience: strings.TrimSpace(raw.Audience),
		Key:      []byte(key),
		TTL:      ttl,
		Now:      now,
	}, nil
}

// Issue signs a session token for the given identifier and grant method.
func Issue(identifier, method string, cfg Config) (string, error) {
	if len(cfg.Key) == 0 {
		return "", errors.New("token signer is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	jti, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}

	now := cfg.Now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Identifier: identifier,
		Method:     method,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies a session token and returns its claims.
func Validate(raw string, cfg Config) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token is required")
	}
	if len(cfg.Key) == 0 {
		return Claims{}, errors.New("token verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if cfg.Issuer != "" && parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token issuer mismatch")
	}
	if cfg.Audience != "" && !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token audience mismatch")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token exp is required")
	}
	if strings.TrimSpace(parsed.Identifier) == "" {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token identifier is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeTokenExpired, "session token is expired")
	}

	claims := Claims{
		Issuer:     parsed.Issuer,
		Audience:   []string(parsed.Audience),
		ExpiresAt:  exp,
		JWTID:      parsed.ID,
		Identifier: parsed.Identifier,
		Method:     parsed.Method,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeTokenInvalid, "session token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeTokenInvalid, "session token alg is invalid")
	}
	return apperrors.New(apperrors.CodeTokenInvalid, "session token is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
