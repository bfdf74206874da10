package service

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInvalidRefresh      = errors.New("invalid_refresh_token")
	ErrInvalidMFAChallenge = errors.New("invalid_mfa_challenge")
	ErrInvalidTOTPCode     = errors.New("invalid_totp_code")
	ErrEmailTaken          = errors.New("email_taken")
	ErrMFAAlreadyEnabled   = errors.New("mfa_already_enabled")
	ErrMFANotEnrolled      = errors.New("mfa_not_enrolled")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrReportNotFound      = errors.New("report_not_found")
	ErrEmptyReport         = errors.New("empty_report")
	ErrInvalidInput        = errors.New("invalid_input")
	ErrBootstrapForbidden  = errors.New("bootstrap_forbidden")
)

// ValidationError carries per-field reasons. It matches ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("invalid input:")
	for _, k := range keys {
		b.WriteString(" " + k + " " + e.Fields[k] + ";")
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func nowFrom(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
