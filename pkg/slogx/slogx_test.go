package slogx_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/patientsportal/portal/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNew_RedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slogx.New(slogx.Config{Service: "portal", Env: "test", Format: "json", Output: &buf})

	log.Info("login", "email", "a@x.com", "password", "hunter2", "refresh_token", "abc", "Secret", "JBSW")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "a@x.com", entry["email"])
	require.Equal(t, slogx.Redacted, entry["password"])
	require.Equal(t, slogx.Redacted, entry["refresh_token"])
	require.Equal(t, slogx.Redacted, entry["Secret"])
	require.Equal(t, "portal", entry["service"])
	require.NotContains(t, buf.String(), "hunter2")
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slogx.New(slogx.Config{Service: "portal", Format: "json", Output: &buf})

	var fromCtx bool
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = slogx.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, fromCtx)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["msg"])
	require.Equal(t, "req-123", entry["req_id"])
	require.EqualValues(t, http.StatusTeapot, entry["status"])
}

func TestHTTPMiddleware_GeneratesRequestID(t *testing.T) {
	base := slogx.New(slogx.Config{Output: &bytes.Buffer{}})
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, rec.Header().Get("X-Request-ID"), 26)
}
