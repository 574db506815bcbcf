package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/platform/logger"
)

// Claims is the verified content of a token.
type Claims struct {
	// UserID identifies the task owner the token was issued for.
	UserID string

	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// tokenClaims is the wire form of the claims. userId matches tokens minted
// by the previous serverless deployment.
type tokenClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens.
type TokenService struct {
	signingKey []byte
	lifetime   time.Duration
	leeway     time.Duration
	timeFunc   func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTimeFunc replaces the clock used to sign and verify tokens.
func WithTimeFunc(fn func() time.Time) TokenOption {
	return func(s *TokenService) { s.timeFunc = fn }
}

// NewTokenService creates a TokenService from the auth configuration.
func NewTokenService(cfg config.AuthConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	s := &TokenService{
		signingKey: []byte(cfg.JWTSecret),
		lifetime:   cfg.TokenLifetime,
		leeway:     cfg.Leeway,
		timeFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateToken signs a token for userID. A non-positive lifetime uses the
// configured default.
func (s *TokenService) GenerateToken(ctx context.Context, userID string, lifetime time.Duration) (string, error) {
	if userID == "" {
		return "", ErrMissingIdentity
	}
	if lifetime <= 0 {
		lifetime = s.lifetime
	}
	now := s.timeFunc()

	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign token",
			"error", err,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and time claims of tokenString and
// returns its claims.
func (s *TokenService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := s.timeFunc()
	token, err := jwt.ParseWithClaims(
		tokenString,
		&tokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("token validation failed: token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("token validation failed",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrMissingIdentity
	}

	out := &Claims{
		UserID:  claims.UserID,
		Subject: claims.Subject,
		ID:      claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
