package portalsdk

import "time"

// Role names carried in the access token "role" claim.
const (
	RoleAdmin   = "Admin"
	RolePatient = "Patient"
)

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Details          map[string]string `json:"details,omitempty"`
}

// RegisterRequest creates a Patient or Admin account. It is also the body of
// the one-time bootstrap call.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the outcome of the password step. MFARequired is true
// when the account already has TOTP enabled; otherwise the caller must enrol.
// MFAToken is a short-lived ticket for the next call either way.
type LoginResponse struct {
	MFARequired bool   `json:"mfaRequired"`
	Email       string `json:"email"`
	MFAToken    string `json:"mfaToken"`
}

type LoginMFARequest struct {
	Email    string `json:"email"`
	TOTPCode string `json:"totpCode"`
	MFAToken string `json:"mfaToken"`
}

// TokenResponse is returned by login/mfa and refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type MFASetupRequest struct {
	Email    string `json:"email"`
	MFAToken string `json:"mfaToken"`
}

// MFASetupResponse carries the enrolment material. The QR image is a
// data:image/png;base64 URI.
type MFASetupResponse struct {
	Secret              string `json:"secret"`
	ProvisioningURI     string `json:"provisioningUri"`
	ProvisioningQRImage string `json:"provisioningQrImage"`
	Issuer              string `json:"issuer"`
	Account             string `json:"account"`
}

type MFAVerifyRequest struct {
	Email    string `json:"email"`
	TOTPCode string `json:"totpCode"`
	MFAToken string `json:"mfaToken"`
}

type MFAVerifyResponse struct {
	MFAEnabled bool `json:"mfaEnabled"`
}

type ValidateRefreshRequest struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
}

type ValidateRefreshResponse struct {
	Valid     bool   `json:"valid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// VerifyResponse echoes the verified access token back to its bearer.
type VerifyResponse struct {
	Message string         `json:"message"`
	UserID  string         `json:"userId"`
	Role    string         `json:"role"`
	Email   string         `json:"email"`
	Claims  map[string]any `json:"claims"`
}

// ReportSummary lists a report without its PDF.
type ReportSummary struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	UploadTime   time.Time  `json:"uploadTime"`
	DownloadTime *time.Time `json:"downloadTime"`
}

type PatientSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// UploadReportRequest is sent as multipart/form-data with the field names
// patientId, reportTitle, reportDescription and reportPdf.
type UploadReportRequest struct {
	PatientID   string
	Title       string
	Description string
	FileName    string
	PDF         []byte
}

type UploadReportResponse struct {
	Message  string `json:"message"`
	ReportID string `json:"reportId"`
}

// Report is a downloaded PDF.
type Report struct {
	FileName string
	PDF      []byte
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Uptime  string            `json:"uptime,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
