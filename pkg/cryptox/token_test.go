package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"128-bit", TokenSize128},
		{"256-bit", TokenSize256},
		{"512-bit", TokenSize512},
		{"custom", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)

			raw, err := base64.RawURLEncoding.DecodeString(token)
			require.NoError(t, err)
			require.Len(t, raw, tt.size)

			again, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, again)
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("token-a")
	require.Equal(t, a, FingerprintToken("token-a"))
	require.NotEqual(t, a, FingerprintToken("token-b"))
	require.Len(t, a, 43)
	require.NotContains(t, a, "token-a")
}
