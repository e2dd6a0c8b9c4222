package main

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the host process configuration, read from the environment (a
// local .env file is loaded first when present).
type Config struct {
	Addr       string `env:"PORTAL_ADDR" envDefault:":8080"`
	BackendURL string `env:"PORTAL_BACKEND_URL" envDefault:"http://localhost:8000/api"`

	GoogleClientID       string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL    string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`
	FacebookClientID     string `env:"OAUTH2_FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"OAUTH2_FACEBOOK_CLIENT_SECRET"`
	FacebookCallbackURL  string `env:"OAUTH2_FACEBOOK_CALLBACK_URL"`

	// SessionPath / PendingPath override the on-disk store locations;
	// empty means ~/.config/hopebridge/.
	SessionPath string `env:"PORTAL_SESSION_PATH"`
	PendingPath string `env:"PORTAL_PENDING_PATH"`
}

// LoadConfig loads .env (if any) and parses the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
