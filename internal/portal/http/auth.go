package http

import (
	"net/http"
	"strings"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/service"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/portalsdk"
)

// AuthHandler serves registration, login and token renewal.
type AuthHandler struct {
	AuthService *service.AuthService
}

func accountResponse(a domain.Account) portalsdk.AccountResponse {
	return portalsdk.AccountResponse{
		ID:          a.ID,
		Email:       a.Email,
		Role:        a.RoleName,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		PhoneNumber: a.PhoneNumber,
	}
}

func tokenResponse(s domain.Session) portalsdk.TokenResponse {
	return portalsdk.TokenResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    portalsdk.TokenTypeBearer,
		ExpiresIn:    int(s.ExpiresIn.Seconds()),
		Email:        s.Account.Email,
		Role:         s.Account.RoleName,
		FirstName:    s.Account.FirstName,
		LastName:     s.Account.LastName,
	}
}

// HandleRegisterPatient handles POST /v1/auth/register/patient
//
//	@Summary		Register a patient
//	@Description	Creates a Patient account. No tokens are issued; log in afterwards.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.RegisterRequest	true	"Account details"
//	@Success		201		{object}	portalsdk.AccountResponse
//	@Failure		400		{object}	portalsdk.ErrorResponse	"Validation failed"
//	@Failure		409		{object}	portalsdk.ErrorResponse	"Email already registered"
//	@Router			/v1/auth/register/patient [post].
func (h *AuthHandler) HandleRegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.AuthService.Register(r.Context(), req, domain.RolePatient)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, accountResponse(a))
}

// HandleRegisterAdmin handles POST /v1/auth/register/admin
//
//	@Summary		Register an admin
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.RegisterRequest	true	"Account details"
//	@Success		201		{object}	portalsdk.AccountResponse
//	@Failure		400		{object}	portalsdk.ErrorResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse
//	@Failure		403		{object}	portalsdk.ErrorResponse	"Caller is not an Admin"
//	@Failure		409		{object}	portalsdk.ErrorResponse
//	@Router			/v1/auth/register/admin [post].
func (h *AuthHandler) HandleRegisterAdmin(w http.ResponseWriter, r *http.Request, _ httpx.Principal) {
	var req portalsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.AuthService.Register(r.Context(), req, domain.RoleAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, accountResponse(a))
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Password step
//	@Description	Checks email and password and returns a short-lived MFA ticket. When mfaRequired is false the account must enrol via /v1/auth/mfa/setup first.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	portalsdk.LoginResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse	"invalid credentials"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.LoginResponse{
		MFARequired: res.MFARequired,
		Email:       res.Email,
		MFAToken:    res.MFAToken,
	})
}

// HandleLoginMFA handles POST /v1/auth/login/mfa
//
//	@Summary		TOTP step
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.LoginMFARequest	true	"Email, TOTP code and ticket"
//	@Success		200		{object}	portalsdk.TokenResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse	"invalid credentials"
//	@Router			/v1/auth/login/mfa [post].
func (h *AuthHandler) HandleLoginMFA(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.LoginMFARequest
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.AuthService.LoginMFA(r.Context(), req.Email, req.TOTPCode, req.MFAToken, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(sess))
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new access token and a new refresh token. The presented token stops working.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	portalsdk.TokenResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.AuthService.RefreshSession(r.Context(), req.RefreshToken, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(sess))
}

// HandleValidateRefresh handles POST /v1/auth/validate-refresh
//
//	@Summary		Check a refresh token without consuming it
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.ValidateRefreshRequest	true	"Email and refresh token"
//	@Success		200		{object}	portalsdk.ValidateRefreshResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse
//	@Router			/v1/auth/validate-refresh [post].
func (h *AuthHandler) HandleValidateRefresh(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.ValidateRefreshRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.AuthService.ValidateRefresh(r.Context(), req.Email, req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.ValidateRefreshResponse{
		Valid:     true,
		Email:     a.Email,
		Role:      a.RoleName,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	})
}

// HandleVerify handles GET /v1/auth/verify
//
//	@Summary		Inspect the caller's access token
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.VerifyResponse
//	@Failure		401	{object}	portalsdk.ErrorResponse
//	@Router			/v1/auth/verify [get].
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, _ *http.Request, p httpx.Principal) {
	claims := map[string]any{
		"sub":   p.Subject,
		"role":  p.Role,
		"email": p.Email,
		"iss":   p.Claims.Issuer,
		"aud":   strings.Join(p.Claims.Audience, " "),
		"jti":   p.Claims.ID,
	}
	if p.Claims.IssuedAt != nil {
		claims["iat"] = p.Claims.IssuedAt.Unix()
	}
	if p.Claims.ExpiresAt != nil {
		claims["exp"] = p.Claims.ExpiresAt.Unix()
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.VerifyResponse{
		Message: "token is valid",
		UserID:  p.Subject,
		Role:    p.Role,
		Email:   p.Email,
		Claims:  claims,
	})
}
