package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeSocket = "socket"

var (
	// ErrSecretEmpty indicates signing or verification without a secret.
	ErrSecretEmpty = errors.New("jwt secret is empty")
	// ErrInvalidToken indicates a token that failed validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked indicates a token whose JTI is blocklisted.
	ErrTokenRevoked = errors.New("token revoked")
)

// SocketClaims are the claims of a token passed as the socket "token" param.
type SocketClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// SocketToken is a signed token plus its expiry metadata.
type SocketToken struct {
	Token        string
	JTI          string
	ExpiresAt    time.Time
	ExpiresInSec int64
}

// Blocklist abstracts revoked token storage.
type Blocklist interface {
	Block(ctx context.Context, jti string, ttl time.Duration) error
	IsBlocked(ctx context.Context, jti string) (bool, error)
}

// GenerateSocketToken signs an HS256 token for subject.
func GenerateSocketToken(subject string, cfg Config) (*SocketToken, error) {
	cfg.Defaults()
	if cfg.Secret == "" {
		return nil, ErrSecretEmpty
	}
	if subject == "" {
		return nil, errors.New("token subject is empty")
	}
	now := time.Now()
	jti := uuid.NewString()
	claims := SocketClaims{
		TokenType: tokenTypeSocket,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &SocketToken{
		Token:        signed,
		JTI:          jti,
		ExpiresAt:    claims.ExpiresAt.Time,
		ExpiresInSec: int64(cfg.TTL.Seconds()),
	}, nil
}

// VerifySocketToken validates signature, type, expiry with the configured
// leeway, issuer when set, and the blocklist when provided.
func VerifySocketToken(ctx context.Context, tokenStr string, cfg Config, blocklist Blocklist) (*SocketClaims, error) {
	cfg.Defaults()
	if cfg.Secret == "" {
		return nil, ErrSecretEmpty
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	claims := &SocketClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeSocket {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidToken, claims.TokenType)
	}
	if blocklist != nil && claims.ID != "" {
		blocked, err := blocklist.IsBlocked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// RevokeSocketToken blocklists the token JTI for its remaining lifetime.
func RevokeSocketToken(ctx context.Context, claims *SocketClaims, cfg Config, blocklist Blocklist) error {
	if claims == nil || claims.ID == "" {
		return errors.New("missing token claims")
	}
	if blocklist == nil {
		return errors.New("blocklist not configured")
	}
	cfg.Defaults()
	ttl := cfg.TTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return blocklist.Block(ctx, claims.ID, ttl)
}

// ParseSocketTokenUnverified decodes claims without validating them.
func ParseSocketTokenUnverified(tokenStr string) (*SocketClaims, error) {
	claims := &SocketClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
