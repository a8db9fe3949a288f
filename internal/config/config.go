package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Deliveries ledger
	Database DatabaseConfig

	// Logging configuration
	Log LogConfig

	// Security configuration
	Security SecurityConfig

	// Template repository and webhook
	GitHub GitHubConfig

	// Remote template store and mail dispatch
	Mandrill MandrillConfig

	// Sync notification and reconciliation
	Sync SyncConfig

	// Optional chat summary
	WhatsApp WhatsAppConfig

	// LocalTemplateDir is where cmd/import writes markdown files
	LocalTemplateDir string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// TrustProxy takes client addresses from X-Forwarded-For / X-Real-IP
	TrustProxy bool
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Driver string `validate:"required"`
	DSN    string `validate:"required"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string `validate:"oneof=json text"`
}

// SecurityConfig holds security-specific configuration
type SecurityConfig struct {
	// API Keys - sent by clients of the admin endpoints
	APIKeys []string `validate:"min=1,dive,min=8"`
}

// GitHubConfig holds the template repository settings
type GitHubConfig struct {
	// WebhookSecret may be empty, the webhook then rejects every delivery
	WebhookSecret string
	APIURL        string `validate:"required,url"`
	Token         string
	Owner         string `validate:"required"`
	Repository    string `validate:"required"`
	Branch        string `validate:"required"`
}

// MandrillConfig holds the Mandrill API settings
type MandrillConfig struct {
	APIURL           string `validate:"required,url"`
	APIKey           string `validate:"required"`
	DefaultFromEmail string `validate:"required,email"`
	DefaultFromName  string
}

// SyncConfig holds reconciliation and notification settings
type SyncConfig struct {
	NotifyEmails []string `validate:"min=1,dive,email"`
	Concurrency  int      `validate:"min=1"`
	Timeout      time.Duration
}

// WhatsAppConfig holds WhatsApp-specific configuration
type WhatsAppConfig struct {
	Enabled    bool
	Recipient  string `validate:"required_if=Enabled true"`
	Driver     string
	DSN        string `validate:"required_if=Enabled true"`
	LogLevel   string
	DeviceName string // Device name that appears in WhatsApp linked devices
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadImport loads configuration for cmd/import, which only talks to Mandrill
func LoadImport() (*Config, error) {
	cfg := load()

	v := validator.New()
	if err := v.Var(cfg.Mandrill.APIKey, "required"); err != nil {
		return nil, fmt.Errorf("config validation failed: MANDRILL_API_KEY: %w", err)
	}
	if err := v.Var(cfg.Mandrill.APIURL, "required,url"); err != nil {
		return nil, fmt.Errorf("config validation failed: MANDRILL_API_URL: %w", err)
	}

	return cfg, nil
}

func load() *Config {
	// .env is optional
	_ = godotenv.Load(".env")

	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", ""),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TrustProxy:      getEnvAsBool("SERVER_TRUST_PROXY", false),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite3"),
			DSN:    getEnv("DB_DSN", "file:email-vcs.db?_foreign_keys=on"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Security: SecurityConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{}),
		},
		GitHub: GitHubConfig{
			WebhookSecret: os.Getenv("GITHUB_WEBHOOK_SECRET"),
			APIURL:        getEnv("GITHUB_API_URL", "https://api.github.com"),
			Token:         getEnv("GITHUB_API_TOKEN", ""),
			Owner:         getEnv("GITHUB_OWNER", ""),
			Repository:    getEnv("GITHUB_TEMPLATE_REPO", ""),
			Branch:        getEnv("GITHUB_SYNC_BRANCH", "master"),
		},
		Mandrill: MandrillConfig{
			APIURL:           getEnv("MANDRILL_API_URL", "https://mandrillapp.com/api/1.0"),
			APIKey:           getEnv("MANDRILL_API_KEY", ""),
			DefaultFromEmail: getEnv("MANDRILL_DEFAULT_FROM_EMAIL", ""),
			DefaultFromName:  getEnv("MANDRILL_DEFAULT_FROM_NAME", ""),
		},
		Sync: SyncConfig{
			NotifyEmails: getEnvAsSlice("NOTIFY_EMAILS", []string{}),
			Concurrency:  getEnvAsInt("SYNC_CONCURRENCY", 4),
			Timeout:      getEnvAsDuration("SYNC_HTTP_TIMEOUT", 30*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			Enabled:    getEnvAsBool("WHATSAPP_ENABLED", false),
			Recipient:  getEnv("WHATSAPP_RECIPIENT", ""),
			Driver:     getEnv("WHATSAPP_DRIVER", "sqlite3"),
			DSN:        getEnv("WHATSAPP_DSN", "file:whatsapp.db?_foreign_keys=on"),
			LogLevel:   getEnv("WHATSAPP_LOG_LEVEL", "INFO"),
			DeviceName: getEnv("WHATSAPP_DEVICE_NAME", "EmailVCS"),
		},
		LocalTemplateDir: getEnv("LOCAL_TEMPLATE_DIR_PATH", "."),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for _, key := range c.Security.APIKeys {
		if key == "default-api-key" || key == "api-key-123" {
			return fmt.Errorf("insecure or default API key detected: '%s'. Please set secure API keys in environment variables", key)
		}
	}

	return nil
}

// Address returns the server address in the format host:port
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated variable, dropping blank entries
func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	values := make([]string, 0)
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
