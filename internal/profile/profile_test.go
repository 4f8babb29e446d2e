package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileEnvVars = []string{
	"PORT",
	"DB_URI",
	"GOOGLE_API_KEY",
	"DECORCHAT_DRIVER",
	"DECORCHAT_AI_BASE_URL",
	"DECORCHAT_AI_CHAT_MODEL",
	"DECORCHAT_AI_EMBEDDING_MODEL",
	"DECORCHAT_AI_EMBEDDING_DIMENSIONS",
	"DECORCHAT_AI_TEMPERATURE",
	"DECORCHAT_RECURSION_LIMIT",
	"DECORCHAT_REQUEST_TIMEOUT",
	"DECORCHAT_SEARCH_MIN_SCORE",
	"DECORCHAT_CACHE_REDIS_ADDR",
}

// clearProfileEnv unsets every variable FromEnv reads; t.Setenv restores them afterwards.
func clearProfileEnv(t *testing.T) {
	t.Helper()
	for _, key := range profileEnvVars {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestProfileDefaults(t *testing.T) {
	clearProfileEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 8000, p.Port)
	assert.Equal(t, DefaultAIBaseURL, p.AIBaseURL)
	assert.Equal(t, "gemini-2.0-flash", p.AIChatModel)
	assert.Equal(t, "text-embedding-004", p.AIEmbeddingModel)
	assert.Equal(t, 768, p.AIEmbeddingDimensions)
	assert.InDelta(t, 0.7, p.AITemperature, 0.0001)
	assert.Equal(t, 15, p.RecursionLimit)
	assert.Equal(t, 2*time.Minute, p.RequestTimeout)
	assert.InDelta(t, 0.5, p.SearchMinScore, 0.0001)
	assert.Empty(t, p.GoogleAPIKey)
	assert.Empty(t, p.CacheRedisAddr)
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) any
		expected any
	}{
		{"PORT", "PORT", "9090", func(p *Profile) any { return p.Port }, 9090},
		{"DB_URI", "DB_URI", "postgres://u:p@localhost/shop", func(p *Profile) any { return p.DSN }, "postgres://u:p@localhost/shop"},
		{"GOOGLE_API_KEY", "GOOGLE_API_KEY", "key-123", func(p *Profile) any { return p.GoogleAPIKey }, "key-123"},
		{"chat model", "DECORCHAT_AI_CHAT_MODEL", "gemini-1.5-pro", func(p *Profile) any { return p.AIChatModel }, "gemini-1.5-pro"},
		{"recursion limit", "DECORCHAT_RECURSION_LIMIT", "7", func(p *Profile) any { return p.RecursionLimit }, 7},
		{"request timeout", "DECORCHAT_REQUEST_TIMEOUT", "45s", func(p *Profile) any { return p.RequestTimeout }, 45 * time.Second},
		{"invalid request timeout keeps default", "DECORCHAT_REQUEST_TIMEOUT", "soon", func(p *Profile) any { return p.RequestTimeout }, 2 * time.Minute},
		{"invalid port keeps default", "PORT", "eighty", func(p *Profile) any { return p.Port }, 8000},
		{"redis addr", "DECORCHAT_CACHE_REDIS_ADDR", "localhost:6379", func(p *Profile) any { return p.CacheRedisAddr }, "localhost:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProfileEnv(t)
			t.Setenv(tt.envVar, tt.envValue)

			p := &Profile{}
			p.FromEnv()
			assert.Equal(t, tt.expected, tt.field(p))
		})
	}
}

func TestProfileFlagsWinOverEnv(t *testing.T) {
	clearProfileEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_URI", "postgres://env")

	p := &Profile{Port: 7070, DSN: "postgres://flag"}
	p.FromEnv()

	assert.Equal(t, 7070, p.Port)
	assert.Equal(t, "postgres://flag", p.DSN)
}

func TestProfileValidate(t *testing.T) {
	t.Run("missing api key is refused", func(t *testing.T) {
		p := &Profile{Port: 8000, Driver: "sqlite", Data: t.TempDir()}
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
	})

	t.Run("postgres driver inferred from DSN", func(t *testing.T) {
		p := &Profile{Port: 8000, GoogleAPIKey: "k", DSN: "postgresql://u@localhost/shop"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "postgres", p.Driver)
		assert.Equal(t, "dev", p.Mode)
	})

	t.Run("sqlite gets a DSN inside the data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "prod", Port: 8000, GoogleAPIKey: "k", Data: dir}
		require.NoError(t, p.Validate())
		assert.Equal(t, "sqlite", p.Driver)
		assert.Equal(t, filepath.Join(dir, "decorchat_prod.db"), p.DSN)
	})

	t.Run("postgres without DSN is refused", func(t *testing.T) {
		p := &Profile{Port: 8000, GoogleAPIKey: "k", Driver: "postgres"}
		assert.Error(t, p.Validate())
	})

	t.Run("unknown driver is refused", func(t *testing.T) {
		p := &Profile{Port: 8000, GoogleAPIKey: "k", Driver: "mongodb", DSN: "mongodb://x"}
		assert.Error(t, p.Validate())
	})

	t.Run("invalid port is refused", func(t *testing.T) {
		p := &Profile{Port: 70000, GoogleAPIKey: "k", Driver: "sqlite", Data: t.TempDir()}
		assert.Error(t, p.Validate())
	})
}

func TestLoadEnvFiles(t *testing.T) {
	clearProfileEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test.local"), []byte("GOOGLE_API_KEY=from-local\nPORT=9191\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=from-base\nDB_URI=postgres://base\n"), 0o600))

	t.Chdir(dir)
	LoadEnvFiles("test")

	p := &Profile{}
	p.FromEnv()
	assert.Equal(t, "from-local", p.GoogleAPIKey)
	assert.Equal(t, 9191, p.Port)
	assert.Equal(t, "postgres://base", p.DSN)
}
