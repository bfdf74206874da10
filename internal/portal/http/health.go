package http

import (
	"context"
	"net/http"
	"time"

	"github.com/patientsportal/portal/internal/portal/store"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/portalsdk"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	portalsdk.HealthResponse
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, portalsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// Pinger is a dependency that readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database and, when configured, the shared rate-limit cache.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	portalsdk.HealthResponse
//	@Failure		503	{object}	portalsdk.HealthResponse
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"database": "ok"}
		status, code := "ok", http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}

		// Optional dependencies degrade the report but never fail readiness.
		for name, dep := range deps {
			checks[name] = "ok"
			if err := dep.Ping(r.Context()); err != nil {
				checks[name] = "error: " + err.Error()
				status = "degraded"
			}
		}

		httpx.WriteJSON(w, code, portalsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
