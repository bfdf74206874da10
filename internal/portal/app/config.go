package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/patientsportal/portal/pkg/jwtx"
)

type Config struct {
	Issuer         string        // Optional: iss claim for access tokens (default: patients-portal)
	Audience       string        // Optional: aud claim for access tokens (default: patients-portal)
	JWTKey         string        // Optional: HS256 signing key, at least 32 bytes
	JWTKeyFile     string        // Optional: file holding the HS256 key, generated if missing (default: ./jwt.key)
	AccessTTL      time.Duration // Optional: access token lifetime (default: 60m)
	RefreshTTL     time.Duration // Optional: refresh token lifetime (default: 30 days)
	MFAIssuer      string        // Optional: issuer shown in authenticator apps (default: Patients Portal)
	BootstrapToken string        // Optional: enables POST /v1/bootstrap when set

	DatabaseFile string // Optional: path to SQLite database file (default: ./portal.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	AllowedOrigins []string // Optional: CORS origins, comma separated
	RedisAddr      string   // Optional: shared rate limit store; in-process limiters when empty

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the environment, after loading ./.env when present.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "patients-portal"),
		Audience:       getEnvOrDefault("AUTH_AUDIENCE", "patients-portal"),
		JWTKey:         os.Getenv("AUTH_JWT_KEY"),
		JWTKeyFile:     getEnvOrDefault("AUTH_JWT_KEY_FILE", "jwt.key"),
		AccessTTL:      getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:     getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		MFAIssuer:      getEnvOrDefault("AUTH_MFA_ISSUER", "Patients Portal"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "portal.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RedisAddr:      os.Getenv("RATELIMIT_REDIS_ADDR"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
