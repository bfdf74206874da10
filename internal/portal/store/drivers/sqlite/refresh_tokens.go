package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
)

type refreshTokensRepo struct {
	db DBTX
}

const refreshTokenColumns = `id, account_id, token_hash, created_at, expires_at, revoked_at, replaced_by_hash, created_by_ip`

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t        domain.RefreshToken
		revoked  sql.NullTime
		replaced sql.NullString
		ip       sql.NullString
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &revoked, &replaced, &ip); err != nil {
		return domain.RefreshToken{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.RevokedAt = mapNullTimePtr(revoked)
	t.ReplacedByHash = mapNullStringPtr(replaced)
	t.CreatedByIP = mapNullString(ip)
	return t, nil
}

func scanRefreshTokens(rows *sql.Rows) ([]domain.RefreshToken, error) {
	defer rows.Close()
	var out []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, account_id, token_hash, created_at, expires_at, created_by_ip)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.TokenHash, utc(t.CreatedAt), utc(t.ExpiresAt), mapStringNull(t.CreatedByIP),
	)
	return mapUnique(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	t, err := scanRefreshToken(row)
	return t, mapNotFound(err)
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, replacedByHash *string, now time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ?, replaced_by_hash = ?
		WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		utc(now), mapOptionalString(replacedByHash), hash, utc(now),
	))
}

func (r *refreshTokensRepo) Chain(ctx context.Context, hash string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH RECURSIVE chain(token_hash, depth) AS (
			SELECT token_hash, 0 FROM refresh_tokens WHERE token_hash = ?
			UNION ALL
			SELECT prev.replaced_by_hash, chain.depth + 1
			FROM chain
			JOIN refresh_tokens prev ON prev.token_hash = chain.token_hash
			WHERE prev.replaced_by_hash IS NOT NULL
		)
		SELECT t.id, t.account_id, t.token_hash, t.created_at, t.expires_at,
		       t.revoked_at, t.replaced_by_hash, t.created_by_ip
		FROM chain JOIN refresh_tokens t ON t.token_hash = chain.token_hash
		ORDER BY chain.depth`, hash)
	if err != nil {
		return nil, err
	}
	out, err := scanRefreshTokens(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, mapNotFound(sql.ErrNoRows)
	}
	return out, nil
}

func (r *refreshTokensRepo) ListRefreshTokensByAccount(ctx context.Context, accountID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+refreshTokenColumns+` FROM refresh_tokens
		WHERE account_id = ? ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, err
	}
	return scanRefreshTokens(rows)
}

func (r *refreshTokensRepo) RevokeAllForAccount(ctx context.Context, accountID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ?
		WHERE account_id = ? AND revoked_at IS NULL`,
		utc(now), accountID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
