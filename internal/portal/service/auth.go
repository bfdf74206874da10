package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/store"
	"github.com/patientsportal/portal/pkg/cryptox"
	"github.com/patientsportal/portal/pkg/idx"
	"github.com/patientsportal/portal/pkg/jwtx"
	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/patientsportal/portal/pkg/slogx"
	"github.com/patientsportal/portal/pkg/totpx"
)

// AccessIssuer signs access tokens. *jwtx.HS256Issuer satisfies it.
type AccessIssuer interface {
	Issue(subject, role, email string) (string, jwtx.Claims, error)
}

// LoginResult is the outcome of the password step. The ticket must accompany
// the follow-up call: login/mfa when MFARequired, otherwise mfa/setup.
type LoginResult struct {
	MFARequired bool
	Email       string
	MFAToken    string
}

type AuthService struct {
	Store      store.Store
	Hasher     *cryptox.PasswordHasher
	Tokens     AccessIssuer
	Refresh    *RefreshService
	Challenges *ChallengeService
	TOTP       *totpx.Engine
}

// Register creates an account holding role. It never issues tokens.
func (s *AuthService) Register(ctx context.Context, req portalsdk.RegisterRequest, role string) (domain.Account, error) {
	return s.register(ctx, s.Store, req, role)
}

func (s *AuthService) register(ctx context.Context, st store.Store, req portalsdk.RegisterRequest, role string) (domain.Account, error) {
	l := slogx.FromContext(ctx)

	if err := invalid(req.Validate()); err != nil {
		return domain.Account{}, err
	}

	r, err := st.Roles().GetRoleByName(ctx, role)
	if err != nil {
		return domain.Account{}, fmt.Errorf("load role %q: %w", role, err)
	}

	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return domain.Account{}, err
	}

	now := nowFrom(nil)
	a := domain.Account{
		ID:           idx.NewAt(now).String(),
		Email:        normaliseEmail(req.Email),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		RoleID:       r.ID,
		RoleName:     r.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := st.Accounts().CreateAccount(ctx, a); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	l.Info("account registered", slog.String("account_id", a.ID), slog.String("role", r.Name))
	return a, nil
}

// Login checks the password. Unknown emails burn the same hashing time as
// known ones and all failures look identical to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	a, err := s.Store.Accounts().GetAccountByEmail(ctx, normaliseEmail(email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = s.Hasher.VerifyDummy(password)
		return LoginResult{}, ErrInvalidCredentials
	case err != nil:
		return LoginResult{}, err
	case a.Deleted():
		_ = s.Hasher.VerifyDummy(password)
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.Hasher.Verify(password, a.PasswordHash); err != nil {
		l.Info("password rejected", slog.String("account_id", a.ID))
		return LoginResult{}, ErrInvalidCredentials
	}

	ticket, err := s.Challenges.Mint(ctx, a.ID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		MFARequired: a.MFAEnabled(),
		Email:       a.Email,
		MFAToken:    ticket,
	}, nil
}

// LoginMFA completes a login with a TOTP code and the ticket from Login.
// Every failure is reported as ErrInvalidCredentials.
func (s *AuthService) LoginMFA(ctx context.Context, email, code, ticket, ip string) (domain.Session, error) {
	a, err := s.Store.Accounts().GetAccountByEmail(ctx, normaliseEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}
	if a.Deleted() || !a.MFAEnabled() || a.MFASecret == nil {
		return domain.Session{}, ErrInvalidCredentials
	}

	c, err := s.Challenges.Check(ctx, ticket, a.ID)
	if errors.Is(err, ErrInvalidMFAChallenge) {
		return domain.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}

	if !s.TOTP.Verify(*a.MFASecret, code) {
		s.Challenges.Fail(ctx, c)
		return domain.Session{}, ErrInvalidCredentials
	}

	var raw string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.Challenges.Consume(ctx, tx, c); err != nil {
			return err
		}
		raw, err = s.Refresh.Issue(ctx, tx, a.ID, "", ip)
		return err
	})
	if errors.Is(err, ErrInvalidMFAChallenge) {
		return domain.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}

	slogx.FromContext(ctx).Info("login completed", slog.String("account_id", a.ID))
	return s.session(a, raw)
}

// RefreshSession rotates raw and signs a fresh access token.
func (s *AuthService) RefreshSession(ctx context.Context, raw, ip string) (domain.Session, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Session{}, ErrInvalidRefresh
	}

	a, next, err := s.Refresh.Rotate(ctx, raw, ip)
	if err != nil {
		return domain.Session{}, err
	}
	return s.session(a, next)
}

// ValidateRefresh reports the owner of raw without consuming it. The token
// hash decides; email only has to agree with the owner.
func (s *AuthService) ValidateRefresh(ctx context.Context, email, raw string) (domain.Account, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Account{}, ErrInvalidRefresh
	}

	rt, err := s.Refresh.Validate(ctx, raw)
	if err != nil {
		return domain.Account{}, err
	}

	a, err := s.Store.Accounts().GetAccountByID(ctx, rt.AccountID)
	if err != nil {
		return domain.Account{}, err
	}
	if a.Deleted() || !strings.EqualFold(strings.TrimSpace(email), a.Email) {
		return domain.Account{}, ErrInvalidRefresh
	}
	return a, nil
}

func (s *AuthService) session(a domain.Account, refresh string) (domain.Session, error) {
	access, claims, err := s.Tokens.Issue(a.ID, a.RoleName, a.Email)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign access token: %w", err)
	}

	return domain.Session{
		TokenPair: domain.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    claims.ExpiresAt.Sub(claims.IssuedAt.Time),
		},
		Account: a,
	}, nil
}
