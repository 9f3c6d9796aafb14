package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "DigitalSeal"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
	defaultCodeTTL         = 10 * time.Minute
	defaultCodeMaxAttempts = 5
	defaultLockoutAfter    = 5
	defaultNonceTTL        = 5 * time.Minute
	defaultSweepInterval   = time.Hour
	defaultSMTPPort        = 587
	defaultMailFrom        = "no-reply@digitalseal.io"
	defaultMailFromName    = "Digital Seal"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	// Token issuance.
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// One-time verification codes.
	CodeTTL         time.Duration
	CodeMaxAttempts int

	// Failed-login lockout.
	LockoutThreshold int

	// Wallet sign-in challenges for not-yet-registered wallets.
	NonceTTL time.Duration

	// Expired token/code cleanup.
	SweepInterval time.Duration

	// Outbound mail. SMTPHost empty means codes are only logged.
	SMTPHost     string
	SMTPPort     int
	MailFrom     string
	MailFromName string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AccessTokenTTL:   defaultAccessTokenTTL,
		RefreshTokenTTL:  defaultRefreshTokenTTL,
		CodeTTL:          defaultCodeTTL,
		CodeMaxAttempts:  defaultCodeMaxAttempts,
		LockoutThreshold: defaultLockoutAfter,
		NonceTTL:         defaultNonceTTL,
		SweepInterval:    defaultSweepInterval,
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         defaultSMTPPort,
		MailFrom:         getEnv("MAIL_FROM", defaultMailFrom),
		MailFromName:     getEnv("MAIL_FROM_NAME", defaultMailFromName),
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL},
		{"VERIFICATION_CODE_TTL", &cfg.CodeTTL},
		{"NONCE_TTL", &cfg.NonceTTL},
		{"SWEEP_INTERVAL", &cfg.SweepInterval},
	}
	for _, d := range durations {
		if v := os.Getenv(d.env); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.env, err)
			}
			*d.dst = parsed
		}
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"VERIFICATION_MAX_ATTEMPTS", &cfg.CodeMaxAttempts},
		{"LOCKOUT_THRESHOLD", &cfg.LockoutThreshold},
		{"SMTP_PORT", &cfg.SMTPPort},
	}
	for _, i := range ints {
		if v := os.Getenv(i.env); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", i.env, err)
			}
			*i.dst = parsed
		}
	}

	// Dev mode runs on in-memory stores when the URLs are absent; anywhere
	// else both backends are mandatory.
	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
