package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/service"
	"github.com/patientsportal/portal/internal/portal/store"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/jwtx"
	"github.com/patientsportal/portal/pkg/slogx"

	_ "github.com/patientsportal/portal/api/portal" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	owner        *httpx.OwnerAuthenticator
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	// Limits holds the per-route limiters; a nil Redis client keeps them in
	// process.
	Limits *httpx.RateLimiters

	// ReadyChecks are optional dependencies reported by /readyz.
	ReadyChecks map[string]Pinger

	AuthService      *service.AuthService
	MFAService       *service.MFAService
	ReportService    *service.ReportService
	BootstrapService *service.BootstrapService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	allowedOrigins []string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		owner:        httpx.NewOwnerAuthenticator(verifier),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(allowedOrigins),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerPatient()
	r.registerAdmin()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Patients Portal API
//	@version					0.1.0
//	@description				Authentication and report access for the patients portal.
//	@description
//	@description				Access tokens are HS256 JWTs. Refresh tokens are opaque and single use.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Registration is public; keep it strict per IP to slow account farming.
	r.Mux.Handle("POST /v1/auth/register/patient",
		httpx.Chain(http.HandlerFunc(h.HandleRegisterPatient),
			r.Limits.ByIP(httpx.StrictLimit, "register"),
		),
	)
	r.Mux.Handle("POST /v1/auth/register/admin",
		httpx.Chain(httpx.RequireRole(r.verifier, domain.RoleAdmin, h.HandleRegisterAdmin),
			r.Limits.ByIP(httpx.ModerateLimit, "register-admin"),
		),
	)

	// Password and TOTP steps are limited by IP + email.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.Limits.ByIPAndJSONField(httpx.StrictLimit, "login", "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/login/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleLoginMFA),
			r.Limits.ByIPAndJSONField(httpx.StrictLimit, "login-mfa", "email"),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			r.Limits.ByIP(httpx.ModerateLimit, "refresh"),
		),
	)
	r.Mux.Handle("POST /v1/auth/validate-refresh",
		httpx.Chain(http.HandlerFunc(h.HandleValidateRefresh),
			r.Limits.ByIP(httpx.ModerateLimit, "validate-refresh"),
		),
	)

	r.Mux.Handle("GET /v1/auth/verify",
		httpx.Chain(httpx.Authenticated(r.verifier, h.HandleVerify),
			r.Limits.ByIP(httpx.LenientLimit, "verify"),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/auth/mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			r.Limits.ByIPAndJSONField(httpx.ModerateLimit, "mfa-setup", "email"),
		),
	)
	// Strict: TOTP codes are only six digits.
	r.Mux.Handle("POST /v1/auth/mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			r.Limits.ByIPAndJSONField(httpx.StrictLimit, "mfa-verify", "email"),
		),
	)
}

func (r *Router) registerPatient() {
	h := &ReportsHandler{ReportService: r.ReportService}
	byEmail := httpx.PathValueKeyExtractor("email")

	r.Mux.Handle("GET /v1/patient/{email}/reports",
		httpx.Chain(r.owner.OwnerOnly(h.HandleList),
			r.Limits.ByKey(httpx.LenientLimit, "reports", byEmail),
		),
	)
	r.Mux.Handle("GET /v1/patient/{email}/reports/{reportId}/download",
		httpx.Chain(r.owner.OwnerOnly(h.HandleDownload),
			r.Limits.ByKey(httpx.ModerateLimit, "download", byEmail),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &ReportsHandler{ReportService: r.ReportService}

	r.Mux.Handle("GET /v1/admin/patients",
		httpx.Chain(httpx.RequireRole(r.verifier, domain.RoleAdmin, h.HandlePatients),
			r.Limits.ByIP(httpx.LenientLimit, "patients"),
		),
	)
	r.Mux.Handle("POST /v1/admin/reports",
		httpx.Chain(httpx.RequireRole(r.verifier, domain.RoleAdmin, h.HandleUpload),
			r.Limits.ByIP(httpx.ModerateLimit, "upload"),
		),
	)
}

func (r *Router) registerBootstrap() {
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(&BootstrapHandler{BootstrapService: r.BootstrapService},
			r.Limits.ByIP(httpx.StrictLimit, "bootstrap"),
		),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.Limits.ByIP(httpx.PublicLimit, "livez"),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.ReadyChecks),
			r.Limits.ByIP(httpx.PublicLimit, "readyz"),
		),
	)
}
