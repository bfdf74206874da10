package service

import (
	"context"
	"testing"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	done, err := env.bootstrap.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.False(t, done)

	_, err = env.bootstrap.Bootstrap(ctx, "wrong", registration("root@example.com"))
	require.ErrorIs(t, err, ErrBootstrapForbidden)

	admin, err := env.bootstrap.Bootstrap(ctx, "let-me-in", registration("root@example.com"))
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.RoleName)

	done, err = env.bootstrap.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.True(t, done)

	_, err = env.bootstrap.Bootstrap(ctx, "let-me-in", registration("second@example.com"))
	require.ErrorIs(t, err, ErrBootstrapForbidden)
}

func TestBootstrap_DisabledWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	env.bootstrap.Token = ""

	_, err := env.bootstrap.Bootstrap(context.Background(), "", registration("root@example.com"))
	require.ErrorIs(t, err, ErrBootstrapForbidden)
}

func TestHousekeeping_PurgesExpiredChallengesOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, secret := env.enrolled(t, "pat@example.com")
	sess := env.login(t, "pat@example.com", secret)

	_, err := env.auth.Login(ctx, "pat@example.com", "correct horse battery")
	require.NoError(t, err)

	env.clock.Advance(DefaultChallengeTTL + time.Minute)

	hk := NewHousekeepingService(env.store, discardLogger(), time.Minute)
	hk.Now = env.clock.Now
	require.EqualValues(t, 1, hk.Cleanup(ctx))
	require.EqualValues(t, 0, hk.Cleanup(ctx))

	_, err = env.refresh.Validate(ctx, sess.RefreshToken)
	require.NoError(t, err, "refresh tokens survive housekeeping")
}
