package service

import (
	"context"
	"strings"
	"testing"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/stretchr/testify/require"
)

func TestMFA_SetupAndVerify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registration("pat@example.com"), domain.RolePatient)
	require.NoError(t, err)

	res, err := env.auth.Login(ctx, "pat@example.com", "correct horse battery")
	require.NoError(t, err)

	t.Run("verify before setup", func(t *testing.T) {
		err := env.mfa.Verify(ctx, "pat@example.com", "123456", res.MFAToken)
		require.ErrorIs(t, err, ErrMFANotEnrolled)
	})

	first, err := env.mfa.Setup(ctx, "pat@example.com", res.MFAToken)
	require.NoError(t, err)
	require.NotEmpty(t, first.Secret)
	require.True(t, strings.HasPrefix(first.URL, "otpauth://totp/"))
	require.True(t, strings.HasPrefix(first.QRImage, "data:image/png;base64,"))
	require.Equal(t, "pat@example.com", first.Account)

	// A second setup replaces the pending secret.
	second, err := env.mfa.Setup(ctx, "pat@example.com", res.MFAToken)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	t.Run("old secret no longer verifies", func(t *testing.T) {
		err := env.mfa.Verify(ctx, "pat@example.com", env.code(t, first.Secret), res.MFAToken)
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	require.NoError(t, env.mfa.Verify(ctx, "pat@example.com", env.code(t, second.Secret), res.MFAToken))

	a, err := env.store.Accounts().GetAccountByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	require.True(t, a.MFAEnabled())

	t.Run("ticket consumed by verify", func(t *testing.T) {
		_, err := env.mfa.Setup(ctx, "pat@example.com", res.MFAToken)
		require.ErrorIs(t, err, ErrInvalidMFAChallenge)
	})

	t.Run("setup after enable", func(t *testing.T) {
		res, err := env.auth.Login(ctx, "pat@example.com", "correct horse battery")
		require.NoError(t, err)
		require.True(t, res.MFARequired)

		_, err = env.mfa.Setup(ctx, "pat@example.com", res.MFAToken)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)

		err = env.mfa.Verify(ctx, "pat@example.com", env.code(t, second.Secret), res.MFAToken)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})
}

func TestMFA_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registration("pat@example.com"), domain.RolePatient)
	require.NoError(t, err)

	tests := []struct {
		name    string
		email   string
		ticket  string
		wantErr error
	}{
		{"unknown account", "ghost@example.com", "whatever", ErrAccountNotFound},
		{"missing ticket", "pat@example.com", "", ErrInvalidMFAChallenge},
		{"bogus ticket", "pat@example.com", "bogus", ErrInvalidMFAChallenge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.mfa.Setup(ctx, tt.email, tt.ticket)
			require.ErrorIs(t, err, tt.wantErr)

			err = env.mfa.Verify(ctx, tt.email, "123456", tt.ticket)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
