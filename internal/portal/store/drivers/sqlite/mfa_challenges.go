package sqlite

import (
	"context"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
)

type mfaChallengesRepo struct {
	db DBTX
}

func (r *mfaChallengesRepo) CreateMFAChallenge(ctx context.Context, c domain.MFAChallenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mfa_challenges (id, ticket_hash, account_id, attempts, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TicketHash, c.AccountID, c.Attempts, utc(c.CreatedAt), utc(c.ExpiresAt),
	)
	return mapUnique(err)
}

func (r *mfaChallengesRepo) GetMFAChallengeByHash(ctx context.Context, hash string, now time.Time) (domain.MFAChallenge, error) {
	var c domain.MFAChallenge
	err := r.db.QueryRowContext(ctx, `
		SELECT id, ticket_hash, account_id, attempts, created_at, expires_at
		FROM mfa_challenges
		WHERE ticket_hash = ? AND expires_at > ?`,
		hash, utc(now),
	).Scan(&c.ID, &c.TicketHash, &c.AccountID, &c.Attempts, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return domain.MFAChallenge{}, mapNotFound(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	return c, nil
}

func (r *mfaChallengesRepo) IncrementMFAChallengeAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE mfa_challenges SET attempts = attempts + 1
		WHERE id = ?
		RETURNING attempts`, id,
	).Scan(&n)
	return n, mapNotFound(err)
}

func (r *mfaChallengesRepo) DeleteMFAChallenge(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM mfa_challenges WHERE id = ?`, id))
}

func (r *mfaChallengesRepo) DeleteExpiredMFAChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mfa_challenges WHERE expires_at <= ?`, utc(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
