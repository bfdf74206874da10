package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/patientsportal/portal/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestRefreshSession_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, secret := env.enrolled(t, "pat@example.com")
	sess := env.login(t, "pat@example.com", secret)

	next, err := env.auth.RefreshSession(ctx, sess.RefreshToken, "10.0.0.1")
	require.NoError(t, err)
	require.NotEqual(t, sess.RefreshToken, next.RefreshToken)
	require.NotEqual(t, sess.AccessToken, next.AccessToken)

	_, err = env.auth.RefreshSession(ctx, sess.RefreshToken, "")
	require.ErrorIs(t, err, ErrInvalidRefresh, "old token is dead")

	_, err = env.auth.RefreshSession(ctx, next.RefreshToken, "")
	require.NoError(t, err, "successor works once")

	_, err = env.auth.RefreshSession(ctx, next.RefreshToken, "")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshSession_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, secret := env.enrolled(t, "pat@example.com")

	t.Run("unknown", func(t *testing.T) {
		_, err := env.auth.RefreshSession(ctx, "not-a-token", "")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := env.auth.RefreshSession(ctx, "", "")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("expired", func(t *testing.T) {
		sess := env.login(t, "pat@example.com", secret)
		env.clock.Advance(env.refresh.TTL)
		_, err := env.auth.RefreshSession(ctx, sess.RefreshToken, "")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("deleted account", func(t *testing.T) {
		sess := env.login(t, "pat@example.com", secret)
		require.NoError(t, env.store.Accounts().SoftDeleteAccount(ctx, a.ID, env.clock.Now()))
		_, err := env.auth.RefreshSession(ctx, sess.RefreshToken, "")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestRotate_ConcurrentConsumersOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, secret := env.enrolled(t, "pat@example.com")
	sess := env.login(t, "pat@example.com", secret)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		invalid int
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := env.refresh.Rotate(ctx, sess.RefreshToken, "")

			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				wins++
			case ErrInvalidRefresh:
				invalid++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, workers-1, invalid)
}

func TestRotate_ChainAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, secret := env.enrolled(t, "pat@example.com")
	sess := env.login(t, "pat@example.com", secret)

	const rotations = 5
	first := sess.RefreshToken
	raw := first
	for range rotations {
		env.clock.Advance(time.Second)
		_, next, err := env.refresh.Rotate(ctx, raw, "")
		require.NoError(t, err)
		raw = next
	}

	chain, err := env.refresh.Chain(ctx, first)
	require.NoError(t, err)
	require.Len(t, chain, rotations+1)

	for i, link := range chain {
		if i == len(chain)-1 {
			require.Nil(t, link.RevokedAt)
			require.Nil(t, link.ReplacedByHash)
			require.Equal(t, cryptox.FingerprintToken(raw), link.TokenHash)
			continue
		}
		require.NotNil(t, link.RevokedAt)
		require.Equal(t, chain[i+1].TokenHash, *link.ReplacedByHash)
	}

	all, err := env.store.RefreshTokens().ListRefreshTokensByAccount(ctx, a.ID)
	require.NoError(t, err)
	var live int
	for _, rt := range all {
		if rt.RevokedAt == nil {
			live++
		}
	}
	require.Equal(t, 1, live)

	_, err = env.refresh.Chain(ctx, "unknown")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
