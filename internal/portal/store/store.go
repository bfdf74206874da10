package store

import (
	"context"
	"errors"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories; a Tx exposes the same repositories bound to one
// transaction so nested transactions cannot happen by accident.
type Store interface {
	Accounts() Accounts
	Roles() Roles
	RefreshTokens() RefreshTokens
	MFAChallenges() MFAChallenges
	Reports() Reports

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing on nil and rolling back
	// otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a (the id is a ULID chosen by the caller).
	// A duplicate email, compared without case, returns ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.Account) error

	// GetAccountByID returns the account with its role name, deleted or not.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail matches email case-insensitively.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// ListActiveAccountsByRole returns non-deleted accounts holding role,
	// ordered by last then first name.
	ListActiveAccountsByRole(ctx context.Context, role string) ([]domain.Account, error)

	// CountActiveAccountsByRole counts non-deleted accounts holding role.
	CountActiveAccountsByRole(ctx context.Context, role string) (int, error)

	// SetPendingMFASecret stores secret for an account whose MFA is not yet
	// enabled. Returns ErrNotFound if no such account.
	SetPendingMFASecret(ctx context.Context, id, secret string, now time.Time) error

	// EnableMFA stamps mfa_enabled_at if it is unset and a secret exists.
	// Returns ErrNotFound when nothing changed.
	EnableMFA(ctx context.Context, id string, now time.Time) error

	// SoftDeleteAccount stamps deleted_at. The row is kept.
	SoftDeleteAccount(ctx context.Context, id string, now time.Time) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListAll(ctx context.Context) ([]domain.Role, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the row whatever its state.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken revokes hash only if it is still live at now,
	// recording its successor. Returns ErrNotFound when no live row matched,
	// which is how a concurrent rotation loses.
	RevokeRefreshToken(ctx context.Context, hash string, replacedByHash *string, now time.Time) error

	// Chain returns hash followed by every successor, oldest first.
	Chain(ctx context.Context, hash string) ([]domain.RefreshToken, error)

	// ListRefreshTokensByAccount returns every row for the account, oldest first.
	ListRefreshTokensByAccount(ctx context.Context, accountID string) ([]domain.RefreshToken, error)

	// RevokeAllForAccount revokes every live token of the account.
	RevokeAllForAccount(ctx context.Context, accountID string, now time.Time) (int64, error)
}

type MFAChallenges interface {
	CreateMFAChallenge(ctx context.Context, c domain.MFAChallenge) error

	// GetMFAChallengeByHash returns the challenge only if unexpired at now.
	GetMFAChallengeByHash(ctx context.Context, hash string, now time.Time) (domain.MFAChallenge, error)

	// IncrementMFAChallengeAttempts returns the new attempt count.
	IncrementMFAChallengeAttempts(ctx context.Context, id string) (int, error)

	DeleteMFAChallenge(ctx context.Context, id string) error

	// DeleteExpiredMFAChallenges is housekeeping.
	DeleteExpiredMFAChallenges(ctx context.Context, now time.Time) (int64, error)
}

type Reports interface {
	CreateReport(ctx context.Context, r domain.Report) error

	// ListReportsByPatient omits the PDF bytes, newest upload first.
	ListReportsByPatient(ctx context.Context, patientID string) ([]domain.Report, error)

	// GetReportForPatient only finds id if it belongs to patientID.
	GetReportForPatient(ctx context.Context, id, patientID string) (domain.Report, error)

	MarkReportDownloaded(ctx context.Context, id string, now time.Time) error
}
