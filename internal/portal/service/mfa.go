package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/store"
	"github.com/patientsportal/portal/pkg/slogx"
	"github.com/patientsportal/portal/pkg/totpx"
)

// MFAService runs the two-phase TOTP enrolment. Setup stores a pending
// secret; Verify turns MFA on after the first good code.
type MFAService struct {
	Store      store.Store
	TOTP       *totpx.Engine
	Challenges *ChallengeService
}

func (s *MFAService) account(ctx context.Context, email string) (domain.Account, error) {
	a, err := s.Store.Accounts().GetAccountByEmail(ctx, normaliseEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	if a.Deleted() {
		return domain.Account{}, ErrAccountNotFound
	}
	return a, nil
}

// Setup generates a new secret for the account. Calling it again before
// Verify replaces the pending secret.
func (s *MFAService) Setup(ctx context.Context, email, ticket string) (domain.MFAEnrollment, error) {
	a, err := s.account(ctx, email)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	if _, err := s.Challenges.Check(ctx, ticket, a.ID); err != nil {
		return domain.MFAEnrollment{}, err
	}

	if a.MFAEnabled() {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	e, err := s.TOTP.Enrol(a.Email)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("enrol totp: %w", err)
	}

	err = s.Store.Accounts().SetPendingMFASecret(ctx, a.ID, e.Secret, nowFrom(s.TOTP.Clock))
	if errors.Is(err, store.ErrNotFound) {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("store mfa secret: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa secret issued", slog.String("account_id", a.ID))

	return domain.MFAEnrollment{
		Secret:  e.Secret,
		URL:     e.URL,
		QRImage: e.QRImage,
		Issuer:  e.Issuer,
		Account: e.Account,
	}, nil
}

// Verify enables MFA if code matches the pending secret. The ticket is
// consumed on success, so the caller logs in again afterwards.
func (s *MFAService) Verify(ctx context.Context, email, code, ticket string) error {
	a, err := s.account(ctx, email)
	if err != nil {
		return err
	}

	c, err := s.Challenges.Check(ctx, ticket, a.ID)
	if err != nil {
		return err
	}

	if a.MFAEnabled() {
		return ErrMFAAlreadyEnabled
	}
	if a.MFASecret == nil || *a.MFASecret == "" {
		return ErrMFANotEnrolled
	}

	if !s.TOTP.Verify(*a.MFASecret, code) {
		s.Challenges.Fail(ctx, c)
		return ErrInvalidTOTPCode
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.Challenges.Consume(ctx, tx, c); err != nil {
			return err
		}
		err := tx.Accounts().EnableMFA(ctx, a.ID, nowFrom(s.TOTP.Clock))
		if errors.Is(err, store.ErrNotFound) {
			return ErrMFAAlreadyEnabled
		}
		return err
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("mfa enabled", slog.String("account_id", a.ID))
	return nil
}
