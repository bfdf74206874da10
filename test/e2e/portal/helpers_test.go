package portal_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/patientsportal/portal/pkg/portalsdk"
	"github.com/patientsportal/portal/pkg/totpx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and account helpers shared by the portal end-to-end tests.
 */

const (
	testImageName = "patients-portal-test:latest"

	bootstrapToken = "test-bootstrap-token-12345"
	adminEmail     = "admin@portal.test"
	testPassword   = "correct horse battery"
)

// TestMain builds the image once for the whole suite and removes it after.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building portal Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up portal Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/portal/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout

	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run()
}

// relaxedLimits lifts the per-route limits so flows with many calls pass.
var relaxedLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_WINDOW_SEC": "60",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
}

// setupPortalContainer starts the portal and returns its base URL. extraEnv
// overrides the defaults.
func setupPortalContainer(t *testing.T, extraEnv map[string]string) string {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"BOOTSTRAP_TOKEN": bootstrapToken,
		"AUTH_ISSUER":     "patients-portal-e2e",
		"AUTH_AUDIENCE":   "patients-portal-e2e",
		"ENV":             "test",
		"LOG_LEVEL":       "info",
		"LOG_FORMAT":      "json",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          env,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// totpCode computes the current code for a secret the way an authenticator
// app would.
func totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totpx.New("e2e").Code(secret, time.Now())
	require.NoError(t, err)
	return code
}

// enrolAndLogin drives a registered account through first login, TOTP
// enrolment and the MFA login. Returns the session and the TOTP secret.
func enrolAndLogin(t *testing.T, client *portalsdk.SDKClient, email string) (*portalsdk.Session, string) {
	t.Helper()
	ctx := context.Background()

	login, err := client.Login(ctx, portalsdk.LoginRequest{Email: email, Password: testPassword})
	require.NoError(t, err, "first login should succeed")
	require.False(t, login.MFARequired, "fresh account has no MFA yet")
	require.NotEmpty(t, login.MFAToken)

	setup, err := client.SetupMFA(ctx, portalsdk.MFASetupRequest{Email: email, MFAToken: login.MFAToken})
	require.NoError(t, err, "MFA setup should succeed")
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.ProvisioningQRImage, "data:image/png;base64,")

	_, err = client.VerifyMFA(ctx, portalsdk.MFAVerifyRequest{
		Email: email, TOTPCode: totpCode(t, setup.Secret), MFAToken: login.MFAToken,
	})
	require.NoError(t, err, "MFA verify should succeed")

	return loginWithMFA(t, client, email, setup.Secret), setup.Secret
}

func loginWithMFA(t *testing.T, client *portalsdk.SDKClient, email, secret string) *portalsdk.Session {
	t.Helper()
	ctx := context.Background()

	login, err := client.Login(ctx, portalsdk.LoginRequest{Email: email, Password: testPassword})
	require.NoError(t, err)
	require.True(t, login.MFARequired)

	tokens, err := client.LoginMFA(ctx, portalsdk.LoginMFARequest{
		Email: email, TOTPCode: totpCode(t, secret), MFAToken: login.MFAToken,
	})
	require.NoError(t, err, "MFA login should succeed")
	assertTokenResponse(t, tokens)

	return client.NewSession(tokens)
}

func registerPatient(t *testing.T, client *portalsdk.SDKClient, email string) *portalsdk.AccountResponse {
	t.Helper()
	acct, err := client.RegisterPatient(context.Background(), portalsdk.RegisterRequest{
		Email:     email,
		Password:  testPassword,
		FirstName: "Test",
		LastName:  "Patient",
	})
	require.NoError(t, err, "registration should succeed")
	return acct
}

// bootstrapAdmin creates the first Admin and returns a logged in session.
func bootstrapAdmin(t *testing.T, client *portalsdk.SDKClient) *portalsdk.Session {
	t.Helper()
	_, err := client.Bootstrap(context.Background(), bootstrapToken, portalsdk.RegisterRequest{
		Email:     adminEmail,
		Password:  testPassword,
		FirstName: "Site",
		LastName:  "Admin",
	})
	require.NoError(t, err, "bootstrap should succeed")

	session, _ := enrolAndLogin(t, client, adminEmail)
	return session
}

func assertTokenResponse(t *testing.T, resp *portalsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "refresh token should not be empty")
	require.Equal(t, portalsdk.TokenTypeBearer, resp.TokenType)
	require.Positive(t, resp.ExpiresIn)
}

// assertStatus checks err is an APIError with the given HTTP status.
func assertStatus(t *testing.T, err error, status int, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)

	var apiErr *portalsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got: %v", err)
	require.Equal(t, status, apiErr.StatusCode, msgAndArgs...)
}
