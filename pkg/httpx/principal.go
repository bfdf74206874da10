package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/patientsportal/portal/pkg/jwtx"
	"github.com/patientsportal/portal/pkg/slogx"
)

var (
	ErrMissingBearer     = errors.New("missing bearer token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrNoEmailClaim      = errors.New("token has no email claim")
	ErrNoPathIdentity    = errors.New("route has no identity segment")
	ErrOwnershipMismatch = errors.New("token does not own this resource")
	ErrInsufficientRole  = errors.New("insufficient role")
)

// Principal is the authenticated caller derived from a verified access token.
type Principal struct {
	Subject string
	Role    string
	Email   string
	Claims  jwtx.Claims
}

// PrincipalHandlerFunc is a handler that receives the caller explicitly.
type PrincipalHandlerFunc func(w http.ResponseWriter, r *http.Request, p Principal)

// BearerToken extracts the raw token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", ErrMissingBearer
	}
	raw := strings.TrimSpace(authz[7:])
	if raw == "" {
		return "", ErrMissingBearer
	}
	return raw, nil
}

// AuthenticateBearer verifies the bearer token on r and builds a Principal.
func AuthenticateBearer(v jwtx.Verifier, r *http.Request) (Principal, error) {
	raw, err := BearerToken(r)
	if err != nil {
		return Principal{}, err
	}

	claims, err := v.Verify(raw)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return Principal{
		Subject: claims.Subject,
		Role:    claims.Role,
		Email:   claims.Email,
		Claims:  claims,
	}, nil
}

// Authenticated requires any valid access token.
func Authenticated(v jwtx.Verifier, next PrincipalHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := AuthenticateBearer(v, r)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		next(w, r, p)
	})
}

// RequireRole requires a valid access token whose role claim equals role.
func RequireRole(v jwtx.Verifier, role string, next PrincipalHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := AuthenticateBearer(v, r)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		if p.Role != role {
			writeAuthError(w, r, ErrInsufficientRole)
			return
		}
		next(w, r, p)
	})
}

// writeAuthError renders RFC 6750 errors. Ownership and role failures are
// 403, everything else 401.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, ErrOwnershipMismatch), errors.Is(err, ErrInsufficientRole):
		log.Warn("access denied", "err", err)
		w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
		WriteJSON(w, http.StatusForbidden, map[string]string{
			"error":             "forbidden",
			"error_description": err.Error(),
		})
	default:
		log.Debug("authentication failed", "err", err)
		desc := "token verification failed"
		if errors.Is(err, ErrMissingBearer) {
			desc = ErrMissingBearer.Error()
		}
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
		WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_token",
			"error_description": desc,
		})
	}
}
