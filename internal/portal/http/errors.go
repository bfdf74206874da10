package http

import (
	"errors"
	"net/http"

	"github.com/patientsportal/portal/internal/portal/service"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/patientsportal/portal/pkg/slogx"
)

// writeError maps service errors onto API errors. Anything unrecognised is
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		portalsdk.NewValidationError(verr.Fields).WriteError(w)
	case errors.Is(err, service.ErrInvalidInput):
		portalsdk.ErrInvalidRequest.WriteError(w)

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrInvalidMFAChallenge):
		portalsdk.ErrInvalidGrant.WriteError(w)

	case errors.Is(err, service.ErrInvalidTOTPCode):
		portalsdk.ErrInvalidCode.WriteError(w)
	case errors.Is(err, service.ErrMFANotEnrolled):
		portalsdk.ErrMFANotEnrolled.WriteError(w)
	case errors.Is(err, service.ErrEmptyReport):
		portalsdk.ErrEmptyReport.WriteError(w)

	case errors.Is(err, service.ErrEmailTaken):
		portalsdk.ErrEmailTaken.WriteError(w)
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		portalsdk.ErrMFAAlreadyEnabled.WriteError(w)

	case errors.Is(err, service.ErrAccountNotFound):
		portalsdk.ErrAccountNotFound.WriteError(w)
	case errors.Is(err, service.ErrReportNotFound):
		portalsdk.ErrReportNotFound.WriteError(w)

	case errors.Is(err, service.ErrBootstrapForbidden):
		portalsdk.ErrBootstrapForbidden.WriteError(w)

	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		portalsdk.ErrServerError.WriteError(w)
	}
}

// decode reads a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		portalsdk.NewAPIError(http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		return false
	}
	return true
}
