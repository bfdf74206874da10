package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/store"
	"github.com/patientsportal/portal/pkg/cryptox"
	"github.com/patientsportal/portal/pkg/idx"
	"github.com/patientsportal/portal/pkg/slogx"
)

const DefaultChallengeTTL = 5 * time.Minute

// ChallengeService mints and checks the short-lived tickets that tie the
// TOTP step (and MFA enrolment) to a successful password check.
type ChallengeService struct {
	Store store.Store
	TTL   time.Duration
	Now   func() time.Time
}

// Mint stores a new ticket for accountID and returns the raw value.
func (s *ChallengeService) Mint(ctx context.Context, accountID string) (string, error) {
	now := nowFrom(s.Now)
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	err = s.Store.MFAChallenges().CreateMFAChallenge(ctx, domain.MFAChallenge{
		ID:         idx.NewAt(now).String(),
		TicketHash: cryptox.FingerprintToken(raw),
		AccountID:  accountID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("store mfa challenge: %w", err)
	}
	return raw, nil
}

// Check returns the live challenge for raw if it was minted for accountID.
func (s *ChallengeService) Check(ctx context.Context, raw, accountID string) (domain.MFAChallenge, error) {
	if raw == "" {
		return domain.MFAChallenge{}, ErrInvalidMFAChallenge
	}

	c, err := s.Store.MFAChallenges().GetMFAChallengeByHash(ctx, cryptox.FingerprintToken(raw), nowFrom(s.Now))
	if errors.Is(err, store.ErrNotFound) {
		return domain.MFAChallenge{}, ErrInvalidMFAChallenge
	}
	if err != nil {
		return domain.MFAChallenge{}, err
	}

	if c.AccountID != accountID || c.Attempts >= domain.MaxMFAAttempts {
		return domain.MFAChallenge{}, ErrInvalidMFAChallenge
	}
	return c, nil
}

// Fail records a wrong code against c, discarding it once the attempt cap
// is reached.
func (s *ChallengeService) Fail(ctx context.Context, c domain.MFAChallenge) {
	l := slogx.FromContext(ctx)

	attempts, err := s.Store.MFAChallenges().IncrementMFAChallengeAttempts(ctx, c.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("failed to count mfa attempt", slog.Any("error", err))
		}
		return
	}

	l.Warn("mfa code rejected",
		slog.String("account_id", c.AccountID),
		slog.Int("attempts", attempts),
	)

	if attempts >= domain.MaxMFAAttempts {
		if err := s.Store.MFAChallenges().DeleteMFAChallenge(ctx, c.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			l.Error("failed to discard mfa challenge", slog.Any("error", err))
		}
	}
}

// Consume deletes c within tx. Losing a race against another consumer
// yields ErrInvalidMFAChallenge.
func (s *ChallengeService) Consume(ctx context.Context, tx store.Tx, c domain.MFAChallenge) error {
	err := tx.MFAChallenges().DeleteMFAChallenge(ctx, c.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidMFAChallenge
	}
	return err
}
