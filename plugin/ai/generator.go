package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// TextGenerator produces free-form text from a single prompt.
// It backs offline jobs such as catalog seeding, not the chat path.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type textGenerator struct {
	model       llms.Model
	maxTokens   int
	temperature float32
}

// NewTextGenerator creates a TextGenerator over the OpenAI-compatible endpoint in cfg.
func NewTextGenerator(cfg *LLMConfig) (TextGenerator, error) {
	if cfg.Model == "" {
		return nil, errors.New("LLM model is required")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create text generator: %w", err)
	}

	return newTextGenerator(model, cfg), nil
}

func newTextGenerator(model llms.Model, cfg *LLMConfig) *textGenerator {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &textGenerator{
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *textGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithMaxTokens(g.maxTokens),
		llms.WithTemperature(float64(g.temperature)),
	)
	if err != nil {
		return "", classifyProviderError(err)
	}
	return out, nil
}
