package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_WiresRoutes(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Issuer:               "portal",
		Audience:             "portal",
		JWTKeyFile:           filepath.Join(dir, "jwt.key"),
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           time.Hour,
		MFAIssuer:            "Portal",
		DatabaseFile:         filepath.Join(dir, "portal.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	srv := httptest.NewServer(app.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Bootstrap is off without a token.
	resp, err = http.Post(srv.URL+"/v1/bootstrap", "application/json", strings.NewReader(
		`{"email":"root@x.com","password":"correct horse battery","firstName":"R","lastName":"A"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
