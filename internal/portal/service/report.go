package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/internal/portal/store"
	"github.com/patientsportal/portal/pkg/idx"
	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/patientsportal/portal/pkg/slogx"
)

// ReportService serves the clinical reports. Callers are expected to have
// checked ownership or the Admin role already.
type ReportService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *ReportService) patientByEmail(ctx context.Context, email string) (domain.Account, error) {
	a, err := s.Store.Accounts().GetAccountByEmail(ctx, normaliseEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	if a.Deleted() || a.RoleName != domain.RolePatient {
		return domain.Account{}, ErrAccountNotFound
	}
	return a, nil
}

// ListForPatient returns the patient's reports, newest first, without PDFs.
func (s *ReportService) ListForPatient(ctx context.Context, email string) ([]domain.Report, error) {
	a, err := s.patientByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.Store.Reports().ListReportsByPatient(ctx, a.ID)
}

// Download returns the report with its PDF and stamps the download time.
func (s *ReportService) Download(ctx context.Context, email, reportID string) (domain.Report, error) {
	a, err := s.patientByEmail(ctx, email)
	if err != nil {
		return domain.Report{}, err
	}

	r, err := s.Store.Reports().GetReportForPatient(ctx, reportID, a.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Report{}, ErrReportNotFound
	}
	if err != nil {
		return domain.Report{}, err
	}
	if len(r.PDF) == 0 {
		return domain.Report{}, ErrEmptyReport
	}

	now := nowFrom(s.Now)
	if err := s.Store.Reports().MarkReportDownloaded(ctx, r.ID, now); err != nil {
		return domain.Report{}, fmt.Errorf("mark downloaded: %w", err)
	}
	r.DownloadTime = &now
	return r, nil
}

// Upload stores a report for the patient named by req.PatientID.
func (s *ReportService) Upload(ctx context.Context, uploaderID string, req portalsdk.UploadReportRequest) (domain.Report, error) {
	if err := invalid(req.Validate()); err != nil {
		return domain.Report{}, err
	}

	patient, err := s.Store.Accounts().GetAccountByID(ctx, strings.TrimSpace(req.PatientID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Report{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Report{}, err
	}
	if patient.Deleted() || patient.RoleName != domain.RolePatient {
		return domain.Report{}, ErrAccountNotFound
	}

	now := nowFrom(s.Now)
	r := domain.Report{
		ID:          idx.NewAt(now).String(),
		PatientID:   patient.ID,
		UploadedBy:  uploaderID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		PDF:         req.PDF,
		UploadTime:  now,
	}
	if err := s.Store.Reports().CreateReport(ctx, r); err != nil {
		return domain.Report{}, fmt.Errorf("create report: %w", err)
	}

	slogx.FromContext(ctx).Info("report uploaded",
		slog.String("report_id", r.ID),
		slog.String("patient_id", patient.ID),
		slog.Int("bytes", len(r.PDF)),
	)
	return r, nil
}

// ListPatients returns every active Patient account.
func (s *ReportService) ListPatients(ctx context.Context) ([]domain.Account, error) {
	return s.Store.Accounts().ListActiveAccountsByRole(ctx, domain.RolePatient)
}
