package portalsdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// expiryBuffer makes sessions refresh slightly before the server would
// reject the access token.
const expiryBuffer = 30 * time.Second

// Session is an authenticated caller with automatic token renewal. It is
// safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	email        string
	role         string
}

// NewSession wraps tokens from LoginMFA or Refresh.
func (c *SDKClient) NewSession(tokens *TokenResponse) *Session {
	s := &Session{client: c}
	s.apply(tokens)
	return s
}

func (s *Session) apply(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - expiryBuffer)
	s.email = tokens.Email
	s.role = tokens.Role
}

func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", errors.New("access token expired and no refresh token available")
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(tokens)
	return s.accessToken, nil
}

// ForceRefresh rotates the refresh token now, regardless of expiry.
func (s *Session) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	s.apply(tokens)
	return nil
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Verify asks the server to echo the current access token's claims.
func (s *Session) Verify(ctx context.Context) (*VerifyResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/verify", nil, nil)
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReports lists the session owner's reports, newest first.
func (s *Session) ListReports(ctx context.Context) ([]ReportSummary, error) {
	return s.ListReportsFor(ctx, s.Email())
}

// ListReportsFor lists another patient's reports. The server only allows
// this for the token's own email; it exists to exercise that check.
func (s *Session) ListReportsFor(ctx context.Context, email string) ([]ReportSummary, error) {
	path := "/v1/patient/" + url.PathEscape(email) + "/reports"
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out []ReportSummary
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadReport fetches one of the session owner's PDFs.
func (s *Session) DownloadReport(ctx context.Context, reportID string) (*Report, error) {
	path := "/v1/patient/" + url.PathEscape(s.Email()) + "/reports/" + url.PathEscape(reportID) + "/download"
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}

	report := &Report{PDF: body}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		report.FileName = params["filename"]
	}
	return report, nil
}

// RegisterAdmin creates another Admin account. Requires an Admin session.
func (s *Session) RegisterAdmin(ctx context.Context, req RegisterRequest) (*AccountResponse, error) {
	body, err := marshalBody(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/register/admin", body,
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, err
	}

	var out AccountResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPatients lists every active Patient account. Requires an Admin session.
func (s *Session) ListPatients(ctx context.Context) ([]PatientSummary, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/admin/patients", nil, nil)
	if err != nil {
		return nil, err
	}

	var out []PatientSummary
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadReport attaches a PDF to a patient. Requires an Admin session.
func (s *Session) UploadReport(ctx context.Context, req UploadReportRequest) (*UploadReportResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	_ = mw.WriteField("patientId", req.PatientID)
	_ = mw.WriteField("reportTitle", req.Title)
	_ = mw.WriteField("reportDescription", req.Description)

	name := req.FileName
	if name == "" {
		name = "report.pdf"
	}
	part, err := mw.CreateFormFile("reportPdf", name)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(req.PDF); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/admin/reports", &buf,
		map[string]string{"Content-Type": mw.FormDataContentType()})
	if err != nil {
		return nil, err
	}

	var out UploadReportResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
