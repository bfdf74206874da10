package totpx_test

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/patientsportal/portal/pkg/totpx"
	"github.com/stretchr/testify/require"
)

// RFC 6238 test secret ("12345678901234567890" in base32).
const fixedSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestEnrol(t *testing.T) {
	e := totpx.New("Patients Portal")

	enr, err := e.Enrol("alice@example.com")
	require.NoError(t, err)
	require.Len(t, enr.Secret, 32) // 20 bytes base32
	require.Equal(t, "Patients Portal", enr.Issuer)
	require.Equal(t, "alice@example.com", enr.Account)

	u, err := url.Parse(enr.URL)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)
	require.Equal(t, enr.Secret, u.Query().Get("secret"))
	require.Equal(t, "Patients Portal", u.Query().Get("issuer"))

	require.True(t, strings.HasPrefix(enr.QRImage, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(enr.QRImage, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG"), raw[:4])

	again, err := e.Enrol("alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, enr.Secret, again.Secret)
}

func TestEnrol_EmptyLabel(t *testing.T) {
	_, err := totpx.New("Patients Portal").Enrol("  ")
	require.ErrorIs(t, err, totpx.ErrEmptyLabel)
}

func TestVerify_Window(t *testing.T) {
	base := time.Unix(1700000010, 0).UTC() // mid-step
	e := totpx.New("Patients Portal")

	code, err := e.Code(fixedSecret, base)
	require.NoError(t, err)

	cases := []struct {
		name  string
		steps int
		want  bool
	}{
		{"T-3", -3, false},
		{"T-2", -2, true},
		{"T-1", -1, true},
		{"T", 0, true},
		{"T+1", 1, true},
		{"T+2", 2, true},
		{"T+3", 3, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			at := base.Add(time.Duration(tc.steps) * 30 * time.Second)
			e.Clock = func() time.Time { return at }
			require.Equal(t, tc.want, e.Verify(fixedSecret, code))
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Unix(1700000010, 0).UTC()
	e := totpx.New("Patients Portal")
	e.Clock = func() time.Time { return now }

	code, err := e.Code(fixedSecret, now)
	require.NoError(t, err)

	require.False(t, e.Verify("", code))
	require.False(t, e.Verify(fixedSecret, ""))
	require.False(t, e.Verify(fixedSecret, "12345"))
	require.False(t, e.Verify(fixedSecret, "abcdef"))
	require.False(t, e.Verify("JBSWY3DPEHPK3PXP", code))
	require.True(t, e.Verify(fixedSecret, " "+code+" "))
}
