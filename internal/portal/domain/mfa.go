package domain

import "time"

// MaxMFAAttempts is how many wrong codes a challenge absorbs before it is
// discarded.
const MaxMFAAttempts = 5

// MFAChallenge is the ticket minted by a successful password step. It binds
// the TOTP step (or MFA enrolment) to that password check.
type MFAChallenge struct {
	ID         string
	TicketHash string
	AccountID  string
	Attempts   int
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// MFAEnrollment is the material shown to the user during setup.
type MFAEnrollment struct {
	Secret  string
	URL     string // otpauth://
	QRImage string // data:image/png;base64,...
	Issuer  string
	Account string
}
