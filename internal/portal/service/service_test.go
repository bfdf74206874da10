package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/store/drivers/sqlite"
	"github.com/patientsportal/portal/pkg/cryptox"
	"github.com/patientsportal/portal/pkg/jwtx"
	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/patientsportal/portal/pkg/totpx"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	clock     *fakeClock
	store     *sqlite.Store
	issuer    *jwtx.HS256Issuer
	totp      *totpx.Engine
	auth      *AuthService
	mfa       *MFAService
	refresh   *RefreshService
	reports   *ReportService
	bootstrap *BootstrapService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := &fakeClock{now: time.Now().UTC().Truncate(time.Second)}

	hasher, err := cryptox.NewPasswordHasher("test-pepper")
	require.NoError(t, err)

	issuer, err := jwtx.NewHS256Issuer([]byte("0123456789abcdef0123456789abcdef"), jwtx.HS256Options{
		Issuer:   "portal-test",
		Audience: "portal-test",
		TTL:      time.Hour,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	engine := totpx.New("Portal Test")
	engine.Clock = clock.Now

	challenges := &ChallengeService{Store: st, Now: clock.Now}
	refresh := &RefreshService{Store: st, TTL: 24 * time.Hour, Now: clock.Now}
	auth := &AuthService{
		Store:      st,
		Hasher:     hasher,
		Tokens:     issuer,
		Refresh:    refresh,
		Challenges: challenges,
		TOTP:       engine,
	}

	return &testEnv{
		clock:     clock,
		store:     st,
		issuer:    issuer,
		totp:      engine,
		auth:      auth,
		mfa:       &MFAService{Store: st, TOTP: engine, Challenges: challenges},
		refresh:   refresh,
		reports:   &ReportService{Store: st, Now: clock.Now},
		bootstrap: &BootstrapService{Store: st, Auth: auth, Token: "let-me-in"},
	}
}

func registration(email string) portalsdk.RegisterRequest {
	return portalsdk.RegisterRequest{
		Email:     email,
		Password:  "correct horse battery",
		FirstName: "Pat",
		LastName:  "Ient",
	}
}

func (e *testEnv) code(t *testing.T, secret string) string {
	t.Helper()
	c, err := e.totp.Code(secret, e.clock.Now())
	require.NoError(t, err)
	return c
}

// enrolled registers a patient and completes MFA enrolment, returning the
// account's TOTP secret.
func (e *testEnv) enrolled(t *testing.T, email string) (domain.Account, string) {
	t.Helper()
	ctx := context.Background()

	a, err := e.auth.Register(ctx, registration(email), domain.RolePatient)
	require.NoError(t, err)

	res, err := e.auth.Login(ctx, email, "correct horse battery")
	require.NoError(t, err)
	require.False(t, res.MFARequired)

	enr, err := e.mfa.Setup(ctx, email, res.MFAToken)
	require.NoError(t, err)
	require.NoError(t, e.mfa.Verify(ctx, email, e.code(t, enr.Secret), res.MFAToken))
	return a, enr.Secret
}

func (e *testEnv) login(t *testing.T, email, secret string) domain.Session {
	t.Helper()
	ctx := context.Background()

	res, err := e.auth.Login(ctx, email, "correct horse battery")
	require.NoError(t, err)
	require.True(t, res.MFARequired)

	sess, err := e.auth.LoginMFA(ctx, email, e.code(t, secret), res.MFAToken, "127.0.0.1")
	require.NoError(t, err)
	return sess
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
