package portalsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the portal's public endpoints and creates Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RegisterPatient creates a Patient account. No tokens are issued.
func (c *SDKClient) RegisterPatient(ctx context.Context, req RegisterRequest) (*AccountResponse, error) {
	var out AccountResponse
	if err := c.postJSON(ctx, "/v1/auth/register/patient", req, &out, http.StatusCreated, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bootstrap creates the first Admin account using the operator's bootstrap
// token. It fails once any Admin exists.
func (c *SDKClient) Bootstrap(ctx context.Context, token string, req RegisterRequest) (*AccountResponse, error) {
	var out AccountResponse
	headers := map[string]string{"X-Bootstrap-Token": token}
	if err := c.postJSON(ctx, "/v1/bootstrap", req, &out, http.StatusCreated, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login performs the password step.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "/v1/auth/login", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginMFA completes login with a TOTP code and the ticket from Login.
func (c *SDKClient) LoginMFA(ctx context.Context, req LoginMFARequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postJSON(ctx, "/v1/auth/login/mfa", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates refreshToken. The argument is dead once this returns.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	req := RefreshRequest{RefreshToken: refreshToken}
	if err := c.postJSON(ctx, "/v1/auth/refresh", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateRefresh checks a refresh token without consuming it.
func (c *SDKClient) ValidateRefresh(ctx context.Context, req ValidateRefreshRequest) (*ValidateRefreshResponse, error) {
	var out ValidateRefreshResponse
	if err := c.postJSON(ctx, "/v1/auth/validate-refresh", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetupMFA starts TOTP enrolment.
func (c *SDKClient) SetupMFA(ctx context.Context, req MFASetupRequest) (*MFASetupResponse, error) {
	var out MFASetupResponse
	if err := c.postJSON(ctx, "/v1/auth/mfa/setup", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA confirms enrolment with a first code.
func (c *SDKClient) VerifyMFA(ctx context.Context, req MFAVerifyRequest) (*MFAVerifyResponse, error) {
	var out MFAVerifyResponse
	if err := c.postJSON(ctx, "/v1/auth/mfa/verify", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness checks if the service can reach its database.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
