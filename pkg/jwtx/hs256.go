package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256KeySize is the smallest accepted HMAC key (bytes).
const MinHS256KeySize = 32

// HS256Options configures an HS256Issuer.
type HS256Options struct {
	Issuer   string
	Audience string
	TTL      time.Duration    // default DefaultAccessTokenTTL
	Now      func() time.Time // default time.Now
}

// HS256Issuer mints and validates access tokens with a symmetric key that
// never leaves the backend.
type HS256Issuer struct {
	key      []byte
	issuer   string
	audience []string
	ttl      time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewHS256Issuer validates the key length and fills option defaults.
func NewHS256Issuer(key []byte, opts HS256Options) (*HS256Issuer, error) {
	if len(key) < MinHS256KeySize {
		return nil, fmt.Errorf("jwtx: HS256 key must be at least %d bytes, got %d", MinHS256KeySize, len(key))
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultAccessTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var aud []string
	if opts.Audience != "" {
		aud = []string{opts.Audience}
	}

	return &HS256Issuer{
		key:      key,
		issuer:   opts.Issuer,
		audience: aud,
		ttl:      opts.TTL,
		now:      opts.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(), // checked below against our own clock
		),
	}, nil
}

// TTL is the default access token lifetime.
func (i *HS256Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token with the default TTL.
func (i *HS256Issuer) Issue(subject, role, email string) (string, Claims, error) {
	return i.IssueWithTTL(subject, role, email, i.ttl)
}

// IssueWithTTL signs a token living for exactly ttl. A ttl of zero or less
// produces a token that is already expired.
func (i *HS256Issuer) IssueWithTTL(subject, role, email string, ttl time.Duration) (string, Claims, error) {
	if subject == "" {
		return "", Claims{}, fmt.Errorf("%w: empty subject", ErrInvalidClaim)
	}

	claims := NewAccessClaims(subject, role, email, ttl, i.issuer, i.audience, i.now())

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", Claims{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature, issuer, audience and expiry of token.
func (i *HS256Issuer) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := i.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(i.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(i.audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(i.now()); err != nil {
		return Claims{}, err
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}

	return claims, nil
}
