package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/strandnet/console/internal/models"
)

// TokenVersionSource resolves the current token_version for an identity.
// In production this is a VersionCache in front of the staff repository.
type TokenVersionSource interface {
	GetTokenVersion(ctx context.Context, staffID int64) (int64, error)
}

// SessionClaims is the claim set embedded in every bearer token.
type SessionClaims struct {
	StaffID      int64  `json:"sid"`
	Role         string `json:"role"`
	TokenVersion int64  `json:"tv"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates bearer tokens. Minting is stateless;
// validation needs one token_version lookup, which is the kill-switch:
// bumping the identity's version invalidates every outstanding token
// without a revocation list.
type TokenIssuer struct {
	secret       []byte
	lifetime     time.Duration
	versions     TokenVersionSource
	storeTimeout time.Duration
}

func NewTokenIssuer(secret string, lifetime time.Duration, versions TokenVersionSource, storeTimeout time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:       []byte(secret),
		lifetime:     lifetime,
		versions:     versions,
		storeTimeout: storeTimeout,
	}
}

// Lifetime returns the fixed token lifetime.
func (ti *TokenIssuer) Lifetime() time.Duration {
	return ti.lifetime
}

// Issue mints a token for the identity. The role claim is a point-in-time
// snapshot; a role change bumps token_version, which forces reissue.
func (ti *TokenIssuer) Issue(identity *models.StaffIdentity) (string, error) {
	now := time.Now()

	claims := &SessionClaims{
		StaffID:      identity.ID,
		Role:         identity.Role,
		TokenVersion: identity.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   fmt.Sprintf("%d", identity.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies signature, structure, and expiry, then checks that the
// embedded token_version still matches the identity's current one. Any
// failure, including a store timeout, rejects the token.
func (ti *TokenIssuer) Validate(ctx context.Context, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrTokenInvalid
	}

	if claims.StaffID == 0 {
		return nil, models.ErrTokenInvalid
	}

	lookupCtx, cancel := context.WithTimeout(ctx, ti.storeTimeout)
	defer cancel()

	currentVersion, err := ti.versions.GetTokenVersion(lookupCtx, claims.StaffID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenInvalid
		}
		// Fail closed on store errors and timeouts.
		return nil, models.ErrTokenInvalid
	}

	if currentVersion != claims.TokenVersion {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
