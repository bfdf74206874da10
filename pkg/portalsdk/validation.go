package portalsdk

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxNameLength     = 100
	MaxPhoneLength    = 32

	MaxReportTitleLength       = 200
	MaxReportDescriptionLength = 1000

	requiredReason = "required"
)

// Validate checks a registration body. Returns field name to reason, or nil.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)

	email := strings.TrimSpace(r.Email)
	switch {
	case email == "":
		errs["email"] = requiredReason
	case !validEmail(email):
		errs["email"] = "must be a valid email address"
	}

	switch n := utf8.RuneCountInString(r.Password); {
	case n == 0:
		errs["password"] = requiredReason
	case n < MinPasswordLength:
		errs["password"] = "too short (min 8)"
	case n > MaxPasswordLength:
		errs["password"] = "too long (max 128)"
	}

	checkName(errs, "firstName", r.FirstName)
	checkName(errs, "lastName", r.LastName)

	if utf8.RuneCountInString(strings.TrimSpace(r.PhoneNumber)) > MaxPhoneLength {
		errs["phoneNumber"] = "too long (max 32)"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the non-file fields of a report upload.
func (r UploadReportRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(r.PatientID) == "" {
		errs["patientId"] = requiredReason
	}

	switch n := utf8.RuneCountInString(strings.TrimSpace(r.Title)); {
	case n == 0:
		errs["reportTitle"] = requiredReason
	case n > MaxReportTitleLength:
		errs["reportTitle"] = "too long (max 200)"
	}

	if utf8.RuneCountInString(r.Description) > MaxReportDescriptionLength {
		errs["reportDescription"] = "too long (max 1000)"
	}

	if len(r.PDF) == 0 {
		errs["reportPdf"] = requiredReason
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkName(errs map[string]string, field, v string) {
	switch n := utf8.RuneCountInString(strings.TrimSpace(v)); {
	case n == 0:
		errs[field] = requiredReason
	case n > MaxNameLength:
		errs[field] = "too long (max 100)"
	}
}

// validEmail accepts a bare addr-spec, rejecting display names.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && addr.Name == ""
}
