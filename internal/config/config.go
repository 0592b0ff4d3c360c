package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds environment-driven settings for the API server.
type Config struct {
	Addr string `env:"LEXVAULT_ADDR" envDefault:":8080"`

	// PGDSN is optional for local runs; /readyz reports not_ready without it.
	PGDSN string `env:"LEXVAULT_PG_DSN"`

	// BaseURL is used to render invite and QR-update links.
	BaseURL string `env:"LEXVAULT_BASE_URL" envDefault:"http://localhost:8080"`

	// SessionSecret signs session JWTs. Required.
	SessionSecret string `env:"LEXVAULT_AUTH_SECRET"`

	// QRSecret signs short-lived QR update tokens. Required.
	QRSecret string `env:"LEXVAULT_QR_SECRET"`

	// APITokenSecret signs scoped API bearer tokens for the admin console
	// and cross-service calls. Falls back to SessionSecret when empty.
	APITokenSecret string `env:"LEXVAULT_API_TOKEN_SECRET"`

	// BootstrapAdminEmail is the one email auto-granted ADMIN on first
	// sign-in. No other path grants ADMIN.
	BootstrapAdminEmail string `env:"LEXVAULT_BOOTSTRAP_ADMIN_EMAIL"`

	// AdminConsoleEnabled is the console kill switch; endpoints 404 when off.
	AdminConsoleEnabled bool `env:"LEXVAULT_ADMIN_CONSOLE_ENABLED" envDefault:"false"`

	InviteTTL time.Duration `env:"LEXVAULT_INVITE_TTL" envDefault:"336h"`
	QRTTL     time.Duration `env:"LEXVAULT_QR_TTL" envDefault:"1h"`
}

// Load parses configuration from environment variables and validates the
// secrets the auth subsystem cannot run without.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.QRSecret = strings.TrimSpace(cfg.QRSecret)
	cfg.APITokenSecret = strings.TrimSpace(cfg.APITokenSecret)
	cfg.BootstrapAdminEmail = strings.TrimSpace(strings.ToLower(cfg.BootstrapAdminEmail))

	if cfg.SessionSecret == "" {
		return Config{}, errors.New("LEXVAULT_AUTH_SECRET is required")
	}
	if cfg.QRSecret == "" {
		return Config{}, errors.New("LEXVAULT_QR_SECRET is required")
	}
	if cfg.APITokenSecret == "" {
		cfg.APITokenSecret = cfg.SessionSecret
	}
	if cfg.InviteTTL <= 0 {
		return Config{}, errors.New("LEXVAULT_INVITE_TTL must be positive")
	}
	if cfg.QRTTL <= 0 {
		return Config{}, errors.New("LEXVAULT_QR_TTL must be positive")
	}
	return cfg, nil
}
