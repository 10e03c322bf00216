// Package llm provides clients for the text-generation and reward-scoring
// services using langchaingo.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/softia/softia-go/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// CompletionClient wraps a langchaingo model for raw text completion.
// The response text is untrusted: it may contain prose, broken JSON, or
// nothing useful at all. Recovery is the caller's problem.
type CompletionClient struct {
	llm       llms.Model
	modelName string
}

// NewCompletionClient creates a completion client based on configuration.
func NewCompletionClient(cfg config.LLMConfig) (*CompletionClient, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		// BaseURL supports OpenAI-compatible gateways (AI/ML API, vLLM, ...).
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &CompletionClient{
		llm:       model,
		modelName: cfg.Model,
	}, nil
}

// Complete sends a system/user prompt pair and returns the raw response text.
// Single blocking call, no retries.
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	slog.Debug("requesting completion", "model", c.modelName, "prompt_len", len(userPrompt), "max_tokens", maxTokens)

	start := time.Now()
	response, err := c.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	duration := time.Since(start)

	if err != nil {
		slog.Warn("completion failed", "model", c.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return "", wrapFatalError(fmt.Errorf("generate: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	slog.Debug("completion received", "model", c.modelName, "duration_ms", duration.Milliseconds(), "response_len", len(response.Choices[0].Content))
	return response.Choices[0].Content, nil
}

// Model returns the completion model name.
func (c *CompletionClient) Model() string {
	return c.modelName
}
