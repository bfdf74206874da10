package app

import (
	"fmt"
	"log/slog"

	"github.com/patientsportal/portal/pkg/cryptox"
	"github.com/patientsportal/portal/pkg/jwtx"
)

// InitTokenIssuer builds the HS256 issuer. AUTH_JWT_KEY wins; otherwise the
// key is read from JWTKeyFile, which is created on first start. Keys are
// symmetric and never published.
func InitTokenIssuer(cfg Config, logger *slog.Logger) (*jwtx.HS256Issuer, error) {
	key := cfg.JWTKey
	source := "env"

	if key == "" {
		var err error
		key, err = cryptox.LoadOrCreateSecret(cfg.JWTKeyFile, cryptox.TokenSize512)
		if err != nil {
			return nil, fmt.Errorf("failed to load JWT key: %w", err)
		}
		source = cfg.JWTKeyFile
	}

	issuer, err := jwtx.NewHS256Issuer([]byte(key), jwtx.HS256Options{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		TTL:      cfg.AccessTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	logger.Info("access token issuer ready",
		"issuer", cfg.Issuer,
		"audience", cfg.Audience,
		"ttl", issuer.TTL(),
		"key_source", source,
	)
	return issuer, nil
}

// InitPasswordHasher loads the pepper from PepperFile, creating it on first
// start. Losing the file invalidates every stored password.
func InitPasswordHasher(cfg Config) (*cryptox.PasswordHasher, error) {
	pepper, err := cryptox.LoadOrCreateSecret(cfg.PepperFile, cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	hasher, err := cryptox.NewPasswordHasher(pepper)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}
	return hasher, nil
}
