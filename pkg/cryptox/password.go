package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for newly created hashes. Existing hashes carry their
// own parameters in the PHC string so these can be raised without a migration.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
	ErrInvalidHash      = errors.New("cryptox: invalid hash format")
)

// PasswordHasher hashes login passwords with argon2id and a server-side
// pepper. It holds no mutable state after construction and is safe to share
// between requests.
type PasswordHasher struct {
	pepper string
	dummy  string
}

// NewPasswordHasher builds a hasher around pepper. The pepper is appended to
// every password before hashing, so losing it invalidates all stored hashes.
func NewPasswordHasher(pepper string) (*PasswordHasher, error) {
	h := &PasswordHasher{pepper: pepper}

	// Pre-compute a hash that no real password will match. Verifying against
	// it keeps unknown-account logins as slow as real ones.
	filler, err := GenerateToken(TokenSize256)
	if err != nil {
		return nil, err
	}
	if h.dummy, err = h.Hash(filler); err != nil {
		return nil, err
	}
	return h, nil
}

// Hash returns a PHC encoded argon2id hash:
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<hash>.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password+h.pepper), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify checks password against an encoded hash. It returns nil on a match,
// ErrPasswordMismatch on a wrong password and ErrInvalidHash when the stored
// value cannot be parsed.
func (h *PasswordHasher) Verify(password, encodedHash string) error {
	params, salt, want, err := decodeHash(encodedHash)
	if err != nil {
		return err
	}

	got := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		uint32(len(want)), // #nosec G115 - decoded hashes are a few dozen bytes
	)

	if subtle.ConstantTimeCompare(got, want) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// VerifyDummy burns the same CPU as a real verification and always fails.
// Call it when the account lookup misses.
func (h *PasswordHasher) VerifyDummy(password string) error {
	_ = h.Verify(password, h.dummy)
	return ErrPasswordMismatch
}

type argonParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if p.memory == 0 || p.iterations == 0 || p.parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: zero parameter", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: salt", ErrInvalidHash)
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return p, nil, nil, fmt.Errorf("%w: hash", ErrInvalidHash)
	}
	return p, salt, sum, nil
}
