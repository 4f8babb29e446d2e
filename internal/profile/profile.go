package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// DefaultAIBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	defaultPort                = 8000
	defaultChatModel           = "gemini-2.0-flash"
	defaultEmbeddingModel      = "text-embedding-004"
	defaultEmbeddingDimensions = 768
	defaultTemperature         = 0.7
	defaultRecursionLimit      = 15
	defaultRequestTimeout      = 2 * time.Minute
	defaultSearchMinScore      = 0.5
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server (PORT)
	Port int
	// Data is the data directory used by the sqlite driver
	Data string
	// DSN points to where decorchat stores catalog and threads (DB_URI)
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI Configuration
	GoogleAPIKey          string  // GOOGLE_API_KEY (required)
	AIBaseURL             string  // DECORCHAT_AI_BASE_URL
	AIChatModel           string  // DECORCHAT_AI_CHAT_MODEL (default: gemini-2.0-flash)
	AIEmbeddingModel      string  // DECORCHAT_AI_EMBEDDING_MODEL (default: text-embedding-004)
	AIEmbeddingDimensions int     // DECORCHAT_AI_EMBEDDING_DIMENSIONS (default: 768)
	AITemperature         float32 // DECORCHAT_AI_TEMPERATURE (default: 0.7)

	// Agent Configuration
	RecursionLimit int           // DECORCHAT_RECURSION_LIMIT (default: 15)
	RequestTimeout time.Duration // DECORCHAT_REQUEST_TIMEOUT (default: 2m)
	SearchMinScore float32       // DECORCHAT_SEARCH_MIN_SCORE (default: 0.5)

	// CacheRedisAddr enables the L2 checkpoint cache when set (DECORCHAT_CACHE_REDIS_ADDR)
	CacheRedisAddr string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// LoadEnvFiles loads ".env.<mode>.local" and then ".env" from the working directory.
// Variables already present in the environment are never overridden.
func LoadEnvFiles(mode string) {
	if mode == "" {
		mode = "dev"
	}
	for _, name := range []string{fmt.Sprintf(".env.%s.local", mode), ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("failed to load env file", slog.String("file", name), slog.String("error", err.Error()))
		}
	}
}

// FromEnv loads configuration from environment variables.
// Values already set (for example from command line flags) win over the environment.
func (p *Profile) FromEnv() {
	getEnvWithDefault := func(key, defaultValue string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultValue
	}
	getIntEnv := func(key string, defaultValue int) int {
		if val, err := strconv.Atoi(os.Getenv(key)); err == nil {
			return val
		}
		return defaultValue
	}
	getFloatEnv := func(key string, defaultValue float32) float32 {
		if val, err := strconv.ParseFloat(os.Getenv(key), 32); err == nil {
			return float32(val)
		}
		return defaultValue
	}

	if p.Port == 0 {
		p.Port = getIntEnv("PORT", defaultPort)
	}
	if p.DSN == "" {
		p.DSN = os.Getenv("DB_URI")
	}
	if p.Driver == "" {
		p.Driver = os.Getenv("DECORCHAT_DRIVER")
	}
	if p.GoogleAPIKey == "" {
		p.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	}

	p.AIBaseURL = getEnvWithDefault("DECORCHAT_AI_BASE_URL", DefaultAIBaseURL)
	p.AIChatModel = getEnvWithDefault("DECORCHAT_AI_CHAT_MODEL", defaultChatModel)
	p.AIEmbeddingModel = getEnvWithDefault("DECORCHAT_AI_EMBEDDING_MODEL", defaultEmbeddingModel)
	p.AIEmbeddingDimensions = getIntEnv("DECORCHAT_AI_EMBEDDING_DIMENSIONS", defaultEmbeddingDimensions)
	p.AITemperature = getFloatEnv("DECORCHAT_AI_TEMPERATURE", defaultTemperature)

	p.RecursionLimit = getIntEnv("DECORCHAT_RECURSION_LIMIT", defaultRecursionLimit)
	p.RequestTimeout = defaultRequestTimeout
	if d, err := time.ParseDuration(os.Getenv("DECORCHAT_REQUEST_TIMEOUT")); err == nil && d > 0 {
		p.RequestTimeout = d
	}
	p.SearchMinScore = getFloatEnv("DECORCHAT_SEARCH_MIN_SCORE", defaultSearchMinScore)
	p.CacheRedisAddr = os.Getenv("DECORCHAT_CACHE_REDIS_ADDR")
}

// driverFromDSN infers the database driver from the connection string scheme.
func driverFromDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o770); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and refuses configurations the server cannot start with.
func (p *Profile) Validate() error {
	if p.GoogleAPIKey == "" {
		return errors.New("GOOGLE_API_KEY is required")
	}

	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port: %d", p.Port)
	}
	if p.RecursionLimit <= 0 {
		p.RecursionLimit = defaultRecursionLimit
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = defaultRequestTimeout
	}
	if p.AIEmbeddingDimensions <= 0 {
		p.AIEmbeddingDimensions = defaultEmbeddingDimensions
	}

	if p.Driver == "" {
		p.Driver = driverFromDSN(p.DSN)
	}
	switch p.Driver {
	case "postgres":
		if p.DSN == "" {
			return errors.New("DB_URI is required for the postgres driver")
		}
	case "sqlite":
		if p.Data == "" {
			p.Data = "data"
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("decorchat_%s.db", p.Mode))
		}
	default:
		return errors.Errorf("unknown db driver: %s", p.Driver)
	}

	return nil
}
