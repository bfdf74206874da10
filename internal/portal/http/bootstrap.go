package http

import (
	"net/http"

	"github.com/patientsportal/portal/internal/portal/service"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/patientsportal/portal/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP creates the first Admin account.
//
//	@Summary		Bootstrap the first admin
//	@Description	Creates the first Admin. Only works with the configured bootstrap token and while no Admin exists.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string						true	"Bootstrap token"
//	@Param			request				body		portalsdk.RegisterRequest	true	"Admin account"
//	@Success		201					{object}	portalsdk.AccountResponse
//	@Failure		400					{object}	portalsdk.ErrorResponse
//	@Failure		403					{object}	portalsdk.ErrorResponse	"Wrong token or already bootstrapped"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slogx.FromContext(r.Context()).Info("bootstrap requested")

	var req portalsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	admin, err := h.BootstrapService.Bootstrap(r.Context(), r.Header.Get("X-Bootstrap-Token"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountResponse(admin))
}
