// Package config loads environment configuration into an explicit object
// that is passed by reference to every component needing it. There is no
// ambient global accessor.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config is the full application configuration.
type Config struct {
	App      App      `env-prefix:"APP_"`
	Server   Server   `env-prefix:"SERVER_"`
	Database Database `env-prefix:"DATABASE_"`
	JWT      JWT      `env-prefix:"JWT_"`
	SMTP     SMTP     `env-prefix:"SMTP_"`
}

type App struct {
	Env         string `env:"ENV" env-default:"development"`
	APIPrefix   string `env:"API_PREFIX" env-default:"/api"`
	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
}

type Server struct {
	Address      string        `env:"ADDRESS" env-default:":3500"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" env-default:"60s"`
}

type Database struct {
	DSN string `env:"DSN" env-default:"file:ledgerly.db?cache=shared&_pragma=foreign_keys(1)"`
}

// JWT carries one secret and TTL per token purpose. Access and refresh back
// the session cookies; confirm and reset back the one-shot email tokens.
type JWT struct {
	AuthSecret    string `env:"SECRET_AUTH" env-required:"true"`
	RefreshSecret string `env:"SECRET_REFRESH" env-required:"true"`
	ConfirmSecret string `env:"SECRET_CONFIRM_ACCOUNT" env-required:"true"`
	ResetSecret   string `env:"SECRET_RESET_PASSWORD" env-required:"true"`

	AuthTTL    time.Duration `env:"AUTH_EXPIRES_IN" env-default:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_EXPIRES_IN" env-default:"168h"`
	ConfirmTTL time.Duration `env:"CREATE_ACCOUNT_EXPIRES_IN" env-default:"24h"`
	ResetTTL   time.Duration `env:"RESET_PASSWORD_EXPIRES_IN" env-default:"1h"`
}

type SMTP struct {
	Host       string `env:"HOST" env-default:"localhost"`
	Port       int    `env:"PORT" env-default:"587"`
	Username   string `env:"USERNAME"`
	Password   string `env:"PASSWORD"`
	Sender     string `env:"SENDER" env-default:"noreply@ledgerly.app"`
	SenderName string `env:"SENDER_NAME" env-default:"Ledgerly"`
}

// IsProduction reports whether the app runs outside development and test.
// Raw tokens are only echoed in responses when this is false.
func (a App) IsProduction() bool {
	return a.Env != EnvDevelopment && a.Env != EnvTest
}

const minSecretLen = 32

// Validate enforces secret strength outside of test environments.
func (c *Config) Validate() error {
	if c.App.Env == EnvTest {
		return nil
	}

	secrets := map[string]string{
		"JWT_SECRET_AUTH":            c.JWT.AuthSecret,
		"JWT_SECRET_REFRESH":         c.JWT.RefreshSecret,
		"JWT_SECRET_CONFIRM_ACCOUNT": c.JWT.ConfirmSecret,
		"JWT_SECRET_RESET_PASSWORD":  c.JWT.ResetSecret,
	}

	for name, secret := range secrets {
		if len(secret) < minSecretLen {
			return fmt.Errorf("%s must be at least %d characters", name, minSecretLen)
		}
	}

	return nil
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is Load for main functions.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
