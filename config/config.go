// Package config loads the server configuration from environment variables.
// A .env file in the working directory is read first when present, which keeps
// local development to a single file while production sets real variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every setting of the API server. Each concern gets its own
// nested struct.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Processing ProcessingConfig
	Sheets     SheetsConfig
	Email      EmailConfig
	Security   SecurityConfig
	CORS       CORSConfig
	Log        LogConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string // e.g. ./data/carga.db
}

// JWTConfig controls token signing and lifetime.
type JWTConfig struct {
	Secret       string
	Expiry       time.Duration // default session (1h)
	RememberDays int           // "remember me" session (30 days)
}

// RememberExpiry returns the lifetime of a remembered session.
func (c JWTConfig) RememberExpiry() time.Duration {
	return time.Duration(c.RememberDays) * 24 * time.Hour
}

// ProcessingConfig drives the batch job that reads sheets and posts to Slack.
type ProcessingConfig struct {
	Interval       time.Duration // 0 disables the scheduler; manual runs still work
	Workers        int
	ManualCooldown time.Duration // per-user cooldown for POST /process/manual
	SlackTimeout   time.Duration
}

// SheetsConfig controls how spreadsheets are fetched.
type SheetsConfig struct {
	FetchTimeout time.Duration
	CacheTTL     time.Duration
}

// EmailConfig is optional. With an empty APIKey generated passwords are only
// returned in the API response.
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
	AppURL       string
}

// Enabled reports whether outgoing mail is configured.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.FromEmail != ""
}

// SecurityConfig holds secrets that are not JWT related.
type SecurityConfig struct {
	EncryptionKey string // 64 hex chars; encrypts squad webhook URLs at rest
	LoginAttempts int
	LoginWindow   time.Duration
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("API_PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_PORT: %w", err)
	}

	expiryMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRY_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_MINUTES: %w", err)
	}

	rememberDays, err := strconv.Atoi(getEnv("JWT_REMEMBER_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REMEMBER_DAYS: %w", err)
	}

	interval, err := time.ParseDuration(getEnv("PROCESS_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESS_INTERVAL: %w", err)
	}

	workers, err := strconv.Atoi(getEnv("PROCESS_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESS_WORKERS: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	cooldown, err := time.ParseDuration(getEnv("PROCESS_MANUAL_COOLDOWN", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESS_MANUAL_COOLDOWN: %w", err)
	}

	slackTimeout, err := time.ParseDuration(getEnv("SLACK_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLACK_TIMEOUT: %w", err)
	}

	fetchTimeout, err := time.ParseDuration(getEnv("SHEETS_FETCH_TIMEOUT", "20s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHEETS_FETCH_TIMEOUT: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("SHEETS_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHEETS_CACHE_TTL: %w", err)
	}

	loginAttempts, err := strconv.Atoi(getEnv("LOGIN_MAX_ATTEMPTS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_MAX_ATTEMPTS: %w", err)
	}

	loginWindow, err := time.ParseDuration(getEnv("LOGIN_WINDOW", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_WINDOW: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("API_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/carga.db"),
		},
		JWT: JWTConfig{
			Secret:       jwtSecret,
			Expiry:       time.Duration(expiryMinutes) * time.Minute,
			RememberDays: rememberDays,
		},
		Processing: ProcessingConfig{
			Interval:       interval,
			Workers:        workers,
			ManualCooldown: cooldown,
			SlackTimeout:   slackTimeout,
		},
		Sheets: SheetsConfig{
			FetchTimeout: fetchTimeout,
			CacheTTL:     cacheTTL,
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("RESEND_FROM", ""),
			AppURL:       getEnv("APP_URL", "http://localhost:5173"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			LoginAttempts: loginAttempts,
			LoginWindow:   loginWindow,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	return cfg, nil
}

// Addr returns the listen address, e.g. "0.0.0.0:5000".
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
