package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvLocal = "local"
	EnvDev   = "development"
	EnvProd  = "production"
)

// Config holds the application configuration
type Config struct {
	Env         string
	DatabaseURL string
	Port        string
	AppSecret   string

	// Credential issuance limit per client IP
	IssueRateLimit  int
	IssueRateWindow time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:             EnvLocal,
		Port:            "8080",
		IssueRateLimit:  30,
		IssueRateWindow: 10 * time.Minute,
	}

	if env := os.Getenv("ENV"); env != "" {
		switch env {
		case EnvLocal, EnvDev, EnvProd:
			cfg.Env = env
		default:
			return nil, fmt.Errorf("ENV must be one of %s, %s, %s; got %q", EnvLocal, EnvDev, EnvProd, env)
		}
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if _, err := url.Parse(databaseURL); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	cfg.DatabaseURL = databaseURL

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Shared with the mobile client; exchanged for per-device auth tokens
	appSecret := os.Getenv("APP_SECRET")
	if appSecret == "" {
		return nil, fmt.Errorf("APP_SECRET environment variable is required")
	}
	cfg.AppSecret = appSecret

	if v := os.Getenv("ISSUE_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("ISSUE_RATE_LIMIT must be a positive integer, got %q", v)
		}
		cfg.IssueRateLimit = n
	}

	if v := os.Getenv("ISSUE_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("ISSUE_RATE_WINDOW must be a positive duration, got %q", v)
		}
		cfg.IssueRateWindow = d
	}

	return cfg, nil
}
