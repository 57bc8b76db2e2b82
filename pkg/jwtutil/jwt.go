// Package jwtutil verifies access tokens issued by the external auth provider.
package jwtutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserClaims represents the JWT claims for an authenticated user
type UserClaims struct {
	Email       string      `json:"email"`
	Role        string      `json:"role,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

// AppMetadata carries provider-managed attributes such as the admin role
type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// UserID parses the subject as the user's id
func (c *UserClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// HasRole reports whether either role claim matches
func (c *UserClaims) HasRole(role string) bool {
	return role != "" && (c.Role == role || c.AppMetadata.Role == role)
}

// Verifier validates bearer tokens
type Verifier struct {
	keyfunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

// NewVerifier verifies against the JWKS endpoint when configured, otherwise the HMAC signing key
func NewVerifier(ctx context.Context, cfg config.JWTConfig) (*Verifier, error) {
	if cfg.JWKSURL != "" {
		return NewJWKSVerifier(ctx, cfg.JWKSURL, cfg.Issuer, cfg.Audience)
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("jwt signing key is empty")
	}
	return NewHMACVerifier([]byte(cfg.SigningKey), cfg.Issuer, cfg.Audience), nil
}

// NewHMACVerifier verifies HS256 tokens signed with secret
func NewHMACVerifier(secret []byte, issuer, audience string) *Verifier {
	keyfn := func(*jwt.Token) (interface{}, error) { return secret, nil }
	return newVerifier(keyfn, []string{jwt.SigningMethodHS256.Alg()}, issuer, audience)
}

// NewJWKSVerifier verifies tokens against keys published at url, refreshed in the background until ctx ends
func NewJWKSVerifier(ctx context.Context, url, issuer, audience string) (*Verifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", url, err)
	}
	methods := []string{
		jwt.SigningMethodRS256.Alg(),
		jwt.SigningMethodES256.Alg(),
		jwt.SigningMethodEdDSA.Alg(),
	}
	return newVerifier(k.Keyfunc, methods, issuer, audience), nil
}

func newVerifier(keyfn jwt.Keyfunc, methods []string, issuer, audience string) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &Verifier{keyfunc: keyfn, opts: opts}
}

// ValidateToken validates and parses the JWT token
func (v *Verifier) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, v.keyfunc, v.opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	return claims, nil
}

// GenerateToken creates an HS256 token for local development and tests
func GenerateToken(secret []byte, userID uuid.UUID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Email:       email,
		Role:        "authenticated",
		AppMetadata: AppMetadata{Role: role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
