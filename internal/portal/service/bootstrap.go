package service

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/store"
	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/patientsportal/portal/pkg/slogx"
)

// BootstrapService creates the first Admin. It is usable exactly while no
// active Admin exists and only with the configured token.
type BootstrapService struct {
	Store store.Store
	Auth  *AuthService
	Token string
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	n, err := s.Store.Accounts().CountActiveAccountsByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req portalsdk.RegisterRequest) (domain.Account, error) {
	l := slogx.FromContext(ctx)

	if s.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		l.Warn("unauthorized bootstrap attempt")
		return domain.Account{}, ErrBootstrapForbidden
	}

	var admin domain.Account
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Accounts().CountActiveAccountsByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		if n > 0 {
			l.Warn("attempted bootstrap on already-bootstrapped system")
			return ErrBootstrapForbidden
		}

		admin, err = s.Auth.register(ctx, tx, req, domain.RoleAdmin)
		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	l.Info("successfully bootstrapped system", slog.String("admin_id", admin.ID))
	return admin, nil
}
