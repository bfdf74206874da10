package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL is used when no AUTH_ACCESS_TTL is configured.
	DefaultAccessTokenTTL = 60 * time.Minute

	// DefaultRefreshTokenTTL is the absolute lifetime of a refresh token.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims carried by portal access tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Role name, "Admin" or "Patient".
	Role string `json:"role"`

	// Email of the account. Patient routes keyed by email compare against it.
	Email string `json:"email,omitempty"`
}

// NewAccessClaims builds the claim set for one access token. Every call gets
// a fresh jti so two tokens minted in the same second still differ.
func NewAccessClaims(
	subject, role, email string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(max(ttl, 0))),
			ID:        NewJTI(),
		},
		Role:  role,
		Email: email,
	}
}

// NewJTI returns a random UUIDv4 for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry checks exp and nbf against now. A token is valid strictly
// before its exp instant, so a zero TTL token is dead on arrival.
func (c *Claims) ValidateExpiry(now time.Time) error {
	return c.ValidateExpiryWithLeeway(now, 0)
}

// ValidateExpiryWithLeeway adds a grace period for clock skew between hosts.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
