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
	"github.com/patientsportal/portal/pkg/jwtx"
	"github.com/patientsportal/portal/pkg/slogx"
)

// RefreshService owns the opaque refresh tokens. Raw values are returned to
// the caller once and only their fingerprints are persisted. Each token is
// single use: exchanging it revokes it and links it to its successor.
type RefreshService struct {
	Store store.Store
	TTL   time.Duration
	Now   func() time.Time
}

func (s *RefreshService) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.TTL
}

// Issue mints a token for accountID inside tx. When supersedes names the
// hash of a live token, that token is revoked in the same transaction and
// pointed at the new one; if it is no longer live Issue fails with
// ErrInvalidRefresh and tx must be rolled back.
func (s *RefreshService) Issue(ctx context.Context, tx store.Tx, accountID, supersedes, ip string) (string, error) {
	now := nowFrom(s.Now)

	raw, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return "", err
	}
	hash := cryptox.FingerprintToken(raw)

	err = tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:          idx.NewAt(now).String(),
		AccountID:   accountID,
		TokenHash:   hash,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl()),
		CreatedByIP: ip,
	})
	if err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}

	if supersedes != "" {
		err := tx.RefreshTokens().RevokeRefreshToken(ctx, supersedes, &hash, now)
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidRefresh
		}
		if err != nil {
			return "", fmt.Errorf("revoke refresh token: %w", err)
		}
	}

	return raw, nil
}

// Rotate consumes raw and returns its owner with a replacement token. Of any
// number of concurrent calls with the same raw value at most one succeeds.
func (s *RefreshService) Rotate(ctx context.Context, raw, ip string) (domain.Account, string, error) {
	now := nowFrom(s.Now)
	hash := cryptox.FingerprintToken(raw)

	var (
		account domain.Account
		next    string
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidRefresh
		}
		if err != nil {
			return err
		}

		if !rt.Active(now) {
			if rt.RevokedAt != nil {
				slogx.FromContext(ctx).Warn("revoked refresh token presented",
					slog.String("account_id", rt.AccountID),
					slog.String("token_id", rt.ID),
				)
			}
			return ErrInvalidRefresh
		}

		account, err = tx.Accounts().GetAccountByID(ctx, rt.AccountID)
		if err != nil {
			return err
		}
		if account.Deleted() {
			return ErrInvalidRefresh
		}

		next, err = s.Issue(ctx, tx, account.ID, hash, ip)
		return err
	})
	if err != nil {
		return domain.Account{}, "", err
	}
	return account, next, nil
}

// Validate looks raw up without consuming it.
func (s *RefreshService) Validate(ctx context.Context, raw string) (domain.RefreshToken, error) {
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return domain.RefreshToken{}, ErrInvalidRefresh
	}
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if !rt.Active(nowFrom(s.Now)) {
		return domain.RefreshToken{}, ErrInvalidRefresh
	}
	return rt, nil
}

// Chain returns the rotation history starting at raw, oldest first.
func (s *RefreshService) Chain(ctx context.Context, raw string) ([]domain.RefreshToken, error) {
	chain, err := s.Store.RefreshTokens().Chain(ctx, cryptox.FingerprintToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidRefresh
	}
	return chain, err
}
