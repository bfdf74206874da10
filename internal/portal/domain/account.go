package domain

import "time"

// Account is a portal user, Admin or Patient. Emails are unique ignoring case.
type Account struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PhoneNumber  string
	RoleID       string
	RoleName     string     // joined from roles
	PasswordHash string     // argon2id PHC string
	MFASecret    *string    // base32 TOTP secret, set by setup
	MFAEnabledAt *time.Time // non-nil once the first code verified
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAEnabled reports whether logins must present a TOTP code.
func (a *Account) MFAEnabled() bool { return a.MFAEnabledAt != nil }

// Deleted reports whether the account has been soft-deleted.
func (a *Account) Deleted() bool { return a.DeletedAt != nil }
