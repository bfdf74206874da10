package domain

import "time"

// RefreshToken is one link of a rotation chain. Only the fingerprint of the
// raw value is stored.
type RefreshToken struct {
	ID             string
	AccountID      string
	TokenHash      string // base64url SHA-256 of the raw token
	CreatedAt      time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	ReplacedByHash *string // successor's TokenHash once rotated
	CreatedByIP    string
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenPair is what a completed login or refresh hands out.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Session is a TokenPair plus the account it was issued to.
type Session struct {
	TokenPair
	Account Account
}
