package portalsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/patientsportal/portal/pkg/httpx"
)

// Error codes carried in the "error" field.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidGrant       = "invalid_grant"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeAccessDenied       = "access_denied"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeEmailTaken         = "email_taken"
	ErrorCodeMFAAlreadyEnabled  = "mfa_already_enabled"
	ErrorCodeMFANotEnrolled     = "mfa_not_enrolled"
	ErrorCodeInvalidCode        = "invalid_code"
	ErrorCodeEmptyReport        = "empty_report"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
	ErrorCodeServiceUnavailable = "service_unavailable"
)

// APIError is an error response. The server writes it with WriteError; the
// client returns it for any unexpected status.
type APIError struct {
	StatusCode  int               `json:"-"`
	Code        string            `json:"error"`
	Description string            `json:"error_description"`
	Details     map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as JSON with its status code.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
		Details:          e.Details,
	})
}

// Is matches on status and code so callers can errors.Is against the
// predefined values below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	// ErrInvalidGrant is deliberately vague: wrong password, unknown email,
	// bad TOTP code and dead refresh tokens all look the same.
	ErrInvalidGrant = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid credentials",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	ErrAccessDenied = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "access denied",
	}

	ErrAccountNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "account not found",
	}

	ErrPatientNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "patient not found",
	}

	ErrReportNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "report not found",
	}

	ErrEmailTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeEmailTaken,
		Description: "an account with this email already exists",
	}

	ErrMFAAlreadyEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeMFAAlreadyEnabled,
		Description: "MFA is already enabled for this account",
	}

	ErrMFANotEnrolled = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMFANotEnrolled,
		Description: "MFA setup has not been started for this account",
	}

	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCode,
		Description: "invalid TOTP code",
	}

	ErrEmptyReport = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeEmptyReport,
		Description: "the report has no PDF content",
	}

	ErrBootstrapForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "bootstrap is disabled or already completed",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewValidationError is a 400 carrying per-field reasons.
func NewValidationError(details map[string]string) *APIError {
	return &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "validation failed",
		Details:     details,
	}
}

// NewAPIError builds a custom error response.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Details:     errResp.Details,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
