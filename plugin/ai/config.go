package ai

import (
	"errors"

	"github.com/hrygo/decorchat/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	LLM       LLMConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string // text-embedding-004
	Dimensions int    // 768
	APIKey     string
	BaseURL    string
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Model       string // gemini-2.0-flash
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
}

// NewConfigFromProfile creates AI config from profile.
// Chat and embeddings share the Google API key and the OpenAI-compatible base URL.
func NewConfigFromProfile(p *profile.Profile) *Config {
	baseURL := p.AIBaseURL
	if baseURL == "" {
		baseURL = profile.DefaultAIBaseURL
	}

	return &Config{
		Embedding: EmbeddingConfig{
			Model:      p.AIEmbeddingModel,
			Dimensions: p.AIEmbeddingDimensions,
			APIKey:     p.GoogleAPIKey,
			BaseURL:    baseURL,
		},
		LLM: LLMConfig{
			Model:       p.AIChatModel,
			APIKey:      p.GoogleAPIKey,
			BaseURL:     baseURL,
			MaxTokens:   2048,
			Temperature: p.AITemperature,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}
	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	return nil
}
