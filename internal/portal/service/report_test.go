package service

import (
	"context"
	"testing"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/stretchr/testify/require"
)

func TestReports(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin, err := env.auth.Register(ctx, registration("admin@example.com"), domain.RoleAdmin)
	require.NoError(t, err)
	patient, err := env.auth.Register(ctx, registration("pat@example.com"), domain.RolePatient)
	require.NoError(t, err)

	pdf := []byte("%PDF-1.7\n...")

	t.Run("no reports yet", func(t *testing.T) {
		list, err := env.reports.ListForPatient(ctx, "pat@example.com")
		require.NoError(t, err)
		require.Empty(t, list)
	})

	older, err := env.reports.Upload(ctx, admin.ID, portalsdk.UploadReportRequest{
		PatientID: patient.ID, Title: "Bloods", PDF: pdf,
	})
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	newer, err := env.reports.Upload(ctx, admin.ID, portalsdk.UploadReportRequest{
		PatientID: patient.ID, Title: "MRI", Description: "knee", PDF: pdf,
	})
	require.NoError(t, err)

	list, err := env.reports.ListForPatient(ctx, "PAT@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)

	got, err := env.reports.Download(ctx, "pat@example.com", older.ID)
	require.NoError(t, err)
	require.Equal(t, pdf, got.PDF)
	require.NotNil(t, got.DownloadTime)

	list, err = env.reports.ListForPatient(ctx, "pat@example.com")
	require.NoError(t, err)
	require.NotNil(t, list[1].DownloadTime)

	t.Run("upload errors", func(t *testing.T) {
		tests := []struct {
			name    string
			req     portalsdk.UploadReportRequest
			wantErr error
		}{
			{"missing title", portalsdk.UploadReportRequest{PatientID: patient.ID, PDF: pdf}, ErrInvalidInput},
			{"empty pdf", portalsdk.UploadReportRequest{PatientID: patient.ID, Title: "x"}, ErrInvalidInput},
			{"unknown patient", portalsdk.UploadReportRequest{PatientID: "01J0000000000000000000000", Title: "x", PDF: pdf}, ErrAccountNotFound},
			{"admin is not a patient", portalsdk.UploadReportRequest{PatientID: admin.ID, Title: "x", PDF: pdf}, ErrAccountNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.reports.Upload(ctx, admin.ID, tt.req)
				require.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("download of someone else's report", func(t *testing.T) {
		_, err := env.auth.Register(ctx, registration("other@example.com"), domain.RolePatient)
		require.NoError(t, err)
		_, err = env.reports.Download(ctx, "other@example.com", older.ID)
		require.ErrorIs(t, err, ErrReportNotFound)
	})

	t.Run("patients list", func(t *testing.T) {
		patients, err := env.reports.ListPatients(ctx)
		require.NoError(t, err)
		require.Len(t, patients, 2)
		for _, p := range patients {
			require.Equal(t, domain.RolePatient, p.RoleName)
		}
	})
}
