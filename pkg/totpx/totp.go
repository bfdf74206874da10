// Package totpx wraps RFC 6238 time-based one-time passwords for the portal's
// second factor: enrolment material (secret, otpauth URI, QR code) and code
// verification against a tolerance window.
package totpx

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultPeriod     = 30
	DefaultSkew       = 2
	DefaultSecretSize = 20
	QRImageSize       = 200
)

var ErrEmptyLabel = errors.New("totpx: empty account label")

// Enrollment is everything an authenticator app needs to add the account.
type Enrollment struct {
	Secret  string // base32, no padding
	URL     string // otpauth://totp/...
	QRImage string // data:image/png;base64,...
	Issuer  string
	Account string
}

// Engine generates and checks 6-digit SHA1 codes. The zero value is not
// usable; build one with New.
type Engine struct {
	Issuer string
	Period uint
	Skew   uint
	Clock  func() time.Time
}

func New(issuer string) *Engine {
	return &Engine{
		Issuer: issuer,
		Period: DefaultPeriod,
		Skew:   DefaultSkew,
		Clock:  time.Now,
	}
}

func (e *Engine) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    e.Period,
		Skew:      e.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Enrol creates a fresh secret for accountLabel. Nothing is persisted here.
func (e *Engine) Enrol(accountLabel string) (Enrollment, error) {
	if strings.TrimSpace(accountLabel) == "" {
		return Enrollment{}, ErrEmptyLabel
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.Issuer,
		AccountName: accountLabel,
		Period:      e.Period,
		SecretSize:  DefaultSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("totpx: generate key: %w", err)
	}

	qr, err := qrDataURI(key)
	if err != nil {
		return Enrollment{}, err
	}

	return Enrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		QRImage: qr,
		Issuer:  e.Issuer,
		Account: accountLabel,
	}, nil
}

// Verify reports whether code is valid for secret at Clock(), allowing Skew
// steps either side.
func (e *Engine) Verify(secret, code string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || len(code) != otp.DigitsSix.Length() {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, e.Clock().UTC(), e.opts())
	return err == nil && ok
}

// Code returns the code for secret at t. Used by tests and the e2e suite.
func (e *Engine) Code(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), e.opts())
}

func qrDataURI(key *otp.Key) (string, error) {
	img, err := key.Image(QRImageSize, QRImageSize)
	if err != nil {
		return "", fmt.Errorf("totpx: render qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("totpx: encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
