package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("API_KEYS", "admin-key-0001, admin-key-0002")
	t.Setenv("GITHUB_OWNER", "coalharbourgroup")
	t.Setenv("GITHUB_TEMPLATE_REPO", "email-templates")
	t.Setenv("MANDRILL_API_KEY", "md-key")
	t.Setenv("MANDRILL_DEFAULT_FROM_EMAIL", "emailvcs@example.com")
	t.Setenv("NOTIFY_EMAILS", "ops@example.com,dev@example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Address())
	assert.Equal(t, "master", cfg.GitHub.Branch)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "https://mandrillapp.com/api/1.0", cfg.Mandrill.APIURL)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.False(t, cfg.WhatsApp.Enabled)
	assert.False(t, cfg.Server.TrustProxy)
	assert.Empty(t, cfg.GitHub.WebhookSecret)
	assert.Equal(t, []string{"admin-key-0001", "admin-key-0002"}, cfg.Security.APIKeys)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, cfg.Sync.NotifyEmails)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GITHUB_SYNC_BRANCH", "production")
	t.Setenv("SYNC_CONCURRENCY", "8")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("SERVER_TRUST_PROXY", "true")
	t.Setenv("WHATSAPP_ENABLED", "true")
	t.Setenv("WHATSAPP_RECIPIENT", "120363000000000000@g.us")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "production", cfg.GitHub.Branch)
	assert.Equal(t, 8, cfg.Sync.Concurrency)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.WhatsApp.Enabled)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"short api key", "API_KEYS", "short"},
		{"default api key", "API_KEYS", "default-api-key"},
		{"bad recipient", "NOTIFY_EMAILS", "ops@example.com,not-an-email"},
		{"bad port", "SERVER_PORT", "70000"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"bad from email", "MANDRILL_DEFAULT_FROM_EMAIL", "nobody"},
		{"whatsapp without recipient", "WHATSAPP_ENABLED", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("LIST", " a ,, b,")
	assert.Equal(t, []string{"a", "b"}, getEnvAsSlice("LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvAsSlice("MISSING_LIST", []string{"x"}))
}

func TestLoadImportNeedsOnlyMandrill(t *testing.T) {
	t.Setenv("MANDRILL_API_KEY", "md-key")
	t.Setenv("LOCAL_TEMPLATE_DIR_PATH", "/tmp/templates")

	cfg, err := LoadImport()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/templates", cfg.LocalTemplateDir)

	t.Setenv("MANDRILL_API_KEY", "")
	_, err = LoadImport()
	assert.Error(t, err)
}
