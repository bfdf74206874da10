package portal_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/stretchr/testify/require"
)

// TestPatientLoginAndOwnership covers registration through MFA login and
// checks that a patient can only read their own reports.
func TestPatientLoginAndOwnership(t *testing.T) {
	client := portalsdk.NewSDKClient(setupPortalContainer(t, relaxedLimits))
	ctx := context.Background()

	registerPatient(t, client, "a@x.com")
	registerPatient(t, client, "b@x.com")

	session, _ := enrolAndLogin(t, client, "a@x.com")
	require.Equal(t, portalsdk.RolePatient, session.Role())

	reports, err := session.ListReports(ctx)
	require.NoError(t, err)
	require.Empty(t, reports)

	_, err = session.ListReportsFor(ctx, "b@x.com")
	assertStatus(t, err, http.StatusForbidden, "another patient's reports must be forbidden")
}

func TestReportUploadAndDownload(t *testing.T) {
	client := portalsdk.NewSDKClient(setupPortalContainer(t, relaxedLimits))
	ctx := context.Background()

	admin := bootstrapAdmin(t, client)
	patient := registerPatient(t, client, "patient@x.com")

	patients, err := admin.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	require.Equal(t, patient.ID, patients[0].ID)

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF")
	up, err := admin.UploadReport(ctx, portalsdk.UploadReportRequest{
		PatientID:   patient.ID,
		Title:       "MRI",
		Description: "knee",
		FileName:    "mri.pdf",
		PDF:         pdf,
	})
	require.NoError(t, err)

	session, _ := enrolAndLogin(t, client, "patient@x.com")

	got, err := session.DownloadReport(ctx, up.ReportID)
	require.NoError(t, err)
	require.Equal(t, pdf, got.PDF)
	require.Equal(t, "MRI.pdf", got.FileName)

	reports, err := session.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].DownloadTime, "download should be recorded")

	_, err = session.ListPatients(ctx)
	assertStatus(t, err, http.StatusForbidden, "patients cannot list patients")
}

func TestRefreshRotation(t *testing.T) {
	client := portalsdk.NewSDKClient(setupPortalContainer(t, relaxedLimits))
	ctx := context.Background()

	registerPatient(t, client, "r@x.com")
	session, _ := enrolAndLogin(t, client, "r@x.com")
	original := session.RefreshToken()

	rotated, err := client.Refresh(ctx, original)
	require.NoError(t, err)
	assertTokenResponse(t, rotated)
	require.NotEqual(t, original, rotated.RefreshToken)

	_, err = client.Refresh(ctx, original)
	assertStatus(t, err, http.StatusUnauthorized, "a rotated refresh token must not be reusable")

	valid, err := client.ValidateRefresh(ctx, portalsdk.ValidateRefreshRequest{
		Email: "r@x.com", RefreshToken: rotated.RefreshToken,
	})
	require.NoError(t, err)
	require.True(t, valid.Valid)

	_, err = client.ValidateRefresh(ctx, portalsdk.ValidateRefreshRequest{
		Email: "someone-else@x.com", RefreshToken: rotated.RefreshToken,
	})
	assertStatus(t, err, http.StatusUnauthorized, "email must match the token owner")
}

func TestBootstrapOnlyOnce(t *testing.T) {
	client := portalsdk.NewSDKClient(setupPortalContainer(t, relaxedLimits))
	ctx := context.Background()

	req := portalsdk.RegisterRequest{Email: adminEmail, Password: testPassword, FirstName: "A", LastName: "B"}

	_, err := client.Bootstrap(ctx, "wrong-token", req)
	assertStatus(t, err, http.StatusForbidden)

	_, err = client.Bootstrap(ctx, bootstrapToken, req)
	require.NoError(t, err)

	req.Email = "second@portal.test"
	_, err = client.Bootstrap(ctx, bootstrapToken, req)
	assertStatus(t, err, http.StatusForbidden, "bootstrap must be one-shot")
}

func TestWrongTOTPRejected(t *testing.T) {
	client := portalsdk.NewSDKClient(setupPortalContainer(t, relaxedLimits))
	ctx := context.Background()

	registerPatient(t, client, "m@x.com")
	_, secret := enrolAndLogin(t, client, "m@x.com")

	login, err := client.Login(ctx, portalsdk.LoginRequest{Email: "m@x.com", Password: testPassword})
	require.NoError(t, err)

	wrong := "000000"
	if totpCode(t, secret) == wrong {
		wrong = "111111"
	}
	_, err = client.LoginMFA(ctx, portalsdk.LoginMFARequest{Email: "m@x.com", TOTPCode: wrong, MFAToken: login.MFAToken})
	assertStatus(t, err, http.StatusUnauthorized)

	// The ticket survives a wrong code until the attempt cap.
	_, err = client.LoginMFA(ctx, portalsdk.LoginMFARequest{
		Email: "m@x.com", TOTPCode: totpCode(t, secret), MFAToken: login.MFAToken,
	})
	require.NoError(t, err)
}
