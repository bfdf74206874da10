package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
)

type accountsRepo struct {
	db DBTX
}

const accountColumns = `
	a.id, a.email, a.first_name, a.last_name, a.phone_number,
	a.role_id, r.name, a.password_hash, a.mfa_secret, a.mfa_enabled_at,
	a.deleted_at, a.created_at, a.updated_at`

const accountFrom = ` FROM accounts a JOIN roles r ON r.id = a.role_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a          domain.Account
		phone      sql.NullString
		secret     sql.NullString
		mfaEnabled sql.NullTime
		deleted    sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.Email, &a.FirstName, &a.LastName, &phone,
		&a.RoleID, &a.RoleName, &a.PasswordHash, &secret, &mfaEnabled,
		&deleted, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	a.PhoneNumber = mapNullString(phone)
	a.MFASecret = mapNullStringPtr(secret)
	a.MFAEnabledAt = mapNullTimePtr(mfaEnabled)
	a.DeletedAt = mapNullTimePtr(deleted)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, first_name, last_name, phone_number, role_id,
			password_hash, mfa_secret, mfa_enabled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		a.ID, a.Email, a.FirstName, a.LastName, mapStringNull(a.PhoneNumber), a.RoleID,
		a.PasswordHash, mapOptionalString(a.MFASecret), utc(a.CreatedAt), utc(a.UpdatedAt),
	)
	return mapUnique(err)
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+accountColumns+accountFrom+` WHERE a.id = ?`, id)
	a, err := scanAccount(row)
	return a, mapNotFound(err)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+accountColumns+accountFrom+` WHERE a.email = ? COLLATE NOCASE`, email)
	a, err := scanAccount(row)
	return a, mapNotFound(err)
}

func (r *accountsRepo) ListActiveAccountsByRole(ctx context.Context, role string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+accountColumns+accountFrom+`
		WHERE r.name = ? AND a.deleted_at IS NULL
		ORDER BY a.last_name, a.first_name, a.id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) CountActiveAccountsByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)`+accountFrom+`
		WHERE r.name = ? AND a.deleted_at IS NULL`, role).Scan(&n)
	return n, err
}

func (r *accountsRepo) SetPendingMFASecret(ctx context.Context, id, secret string, now time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `
		UPDATE accounts SET mfa_secret = ?, updated_at = ?
		WHERE id = ? AND mfa_enabled_at IS NULL`,
		secret, utc(now), id,
	))
}

func (r *accountsRepo) EnableMFA(ctx context.Context, id string, now time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `
		UPDATE accounts SET mfa_enabled_at = ?, updated_at = ?
		WHERE id = ? AND mfa_enabled_at IS NULL AND mfa_secret IS NOT NULL`,
		utc(now), utc(now), id,
	))
}

func (r *accountsRepo) SoftDeleteAccount(ctx context.Context, id string, now time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `
		UPDATE accounts SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		utc(now), utc(now), id,
	))
}
