// Package service implements dataset generation, quality scoring, and the
// training pipeline.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/softia/softia-go/internal/metrics"
	"github.com/softia/softia-go/internal/models"
	"github.com/softia/softia-go/internal/parser"
)

// Completer is the text-completion collaborator. Implementations return raw,
// untrusted text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

const generatorSystemPrompt = "You are an AI assistant specialized in generating high-quality datasets " +
	"for machine-learning tasks. Return only valid, well-formed JSON."

// GeneratorOptions tunes dataset generation.
type GeneratorOptions struct {
	Temperature    float64
	MaxTokens      int
	ScoringEnabled bool
}

// DefaultGeneratorOptions returns the standard sampling settings.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Temperature:    0.7,
		MaxTokens:      4096,
		ScoringEnabled: false,
	}
}

// Generator produces synthetic instruction/response datasets for a use case
// by prompting a completion service and recovering structure from whatever
// comes back.
//
// Generation is deliberately availability-over-correctness: when the service
// misbehaves beyond repair, Generate returns a small placeholder dataset
// instead of failing, so the pipeline always has something downstream. The
// fallback is logged and counted.
type Generator struct {
	client Completer
	scorer *Scorer
	opts   GeneratorOptions
}

// NewGenerator creates a dataset generator. scorer may be nil when scoring
// is disabled.
func NewGenerator(client Completer, scorer *Scorer, opts GeneratorOptions) *Generator {
	return &Generator{client: client, scorer: scorer, opts: opts}
}

// Generate produces a dataset of roughly numSamples examples for the use
// case. Seed examples, when present, steer the prompt but are not included
// in the result. The returned dataset is never empty.
func (g *Generator) Generate(ctx context.Context, useCase string, numSamples int, seeds []models.Example) (models.Dataset, error) {
	if strings.TrimSpace(useCase) == "" {
		return nil, fmt.Errorf("use case must not be empty")
	}
	if numSamples < 1 {
		return nil, fmt.Errorf("num samples must be at least 1, got %d", numSamples)
	}

	prompt := buildGenerationPrompt(useCase, numSamples, seeds)

	start := time.Now()
	raw, err := g.client.Complete(ctx, generatorSystemPrompt, prompt, g.opts.MaxTokens, g.opts.Temperature)
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("completion failed, falling back to placeholder dataset", "use_case", useCase, "error", err)
		return g.placeholder(useCase), nil
	}

	ds, err := parser.RecoverExamples(raw)
	if err != nil {
		slog.Warn("recovery failed, falling back to placeholder dataset",
			"use_case", useCase, "response_len", len(raw), "error", err)
		return g.placeholder(useCase), nil
	}

	metrics.ExamplesGenerated.Add(float64(len(ds)))
	slog.Info("dataset generated", "use_case", useCase, "requested", numSamples, "recovered", len(ds))

	if g.opts.ScoringEnabled && g.scorer != nil {
		ds = g.scorer.Filter(ctx, ds)
	}

	return ds, nil
}

// buildGenerationPrompt assembles the instruction prompt: use case, sample
// count, target schema, built-in demonstrations, and any caller-provided
// seed examples serialized inline.
func buildGenerationPrompt(useCase string, numSamples int, seeds []models.Example) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Use case:** %s\n\n", useCase)
	b.WriteString("**Instructions:**\n")
	fmt.Fprintf(&b, "- Generate a dataset with %d samples.\n", numSamples)
	b.WriteString("- Each data point must be a JSON object following the structure below.\n")
	b.WriteString("- Make the data diverse, covering different aspects of the use case.\n")
	b.WriteString("- IMPORTANT: return ONLY valid JSON in the exact format specified.\n\n")

	b.WriteString("**Dataset structure:**\n```json\n")
	b.WriteString("[\n    {\n        \"entrada\": \"question text here\",\n        \"salida\": \"answer text here\"\n    },\n    ...\n]\n```\n\n")

	b.WriteString("**Two-shot examples:**\n```json\n")
	b.WriteString(`[
    {
        "entrada": "How can I reset my password?",
        "salida": "To reset your password, click 'Forgot my password' on the login page and follow the instructions sent to your email."
    },
    {
        "entrada": "What is the refund policy?",
        "salida": "Our refund policy allows returning products within 30 days of purchase for a full refund, provided the items are in their original condition."
    }
]`)
	b.WriteString("\n```\n")

	if len(seeds) > 0 {
		// Serialized verbatim so the model mirrors the document's domain.
		if data, err := json.MarshalIndent(seeds, "", "    "); err == nil {
			b.WriteString("\n**Reference examples from the provided documents:**\n```json\n")
			b.Write(data)
			b.WriteString("\n```\n")
		}
	}

	b.WriteString("\n**Generated dataset:**\nReturn ONLY valid JSON, without explanations or comments.")
	return b.String()
}

// placeholder returns the two-example fallback dataset derived from the use
// case. Deterministic so downstream behavior is predictable.
func (g *Generator) placeholder(useCase string) models.Dataset {
	metrics.PlaceholderFallbacks.Inc()
	return models.Dataset{
		{
			Input:  fmt.Sprintf("What is %s?", useCase),
			Output: fmt.Sprintf("This is a sample answer about %s.", useCase),
		},
		{
			Input:  fmt.Sprintf("Tell me more about %s.", useCase),
			Output: fmt.Sprintf("Here is additional information about %s.", useCase),
		},
	}
}
