package http

import (
	"net/http"

	"github.com/patientsportal/portal/internal/portal/service"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/portalsdk"
)

// MFAHandler serves TOTP enrolment. Both calls need the ticket from login.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleSetup handles POST /v1/auth/mfa/setup
//
//	@Summary		Start TOTP enrolment
//	@Description	Generates a TOTP secret, otpauth URI and QR code. MFA stays disabled until /v1/auth/mfa/verify succeeds.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.MFASetupRequest	true	"Email and ticket"
//	@Success		200		{object}	portalsdk.MFASetupResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse	"Missing, expired or foreign ticket"
//	@Failure		404		{object}	portalsdk.ErrorResponse	"Unknown account"
//	@Failure		409		{object}	portalsdk.ErrorResponse	"MFA already enabled"
//	@Router			/v1/auth/mfa/setup [post].
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.MFASetupRequest
	if !decode(w, r, &req) {
		return
	}

	e, err := h.MFAService.Setup(r.Context(), req.Email, req.MFAToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.MFASetupResponse{
		Secret:              e.Secret,
		ProvisioningURI:     e.URL,
		ProvisioningQRImage: e.QRImage,
		Issuer:              e.Issuer,
		Account:             e.Account,
	})
}

// HandleVerify handles POST /v1/auth/mfa/verify
//
//	@Summary		Finish TOTP enrolment
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.MFAVerifyRequest	true	"Email, TOTP code and ticket"
//	@Success		200		{object}	portalsdk.MFAVerifyResponse
//	@Failure		400		{object}	portalsdk.ErrorResponse	"Wrong code or setup not started"
//	@Failure		401		{object}	portalsdk.ErrorResponse
//	@Failure		404		{object}	portalsdk.ErrorResponse
//	@Router			/v1/auth/mfa/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.MFAVerifyRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.MFAService.Verify(r.Context(), req.Email, req.TOTPCode, req.MFAToken); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.MFAVerifyResponse{MFAEnabled: true})
}
