package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/softia/softia-go/internal/config"
)

// rewardRequestTimeout bounds a single scoring call. The core flow has no
// retry around this, so a hung endpoint must not stall dataset generation
// indefinitely.
const rewardRequestTimeout = 60 * time.Second

// TokenLogprob is one token of a reward-model trace.
type TokenLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

// RewardClient talks to an OpenAI-compatible endpoint serving a reward model.
// Reward models answer with a per-token logprob trace instead of text;
// langchaingo does not surface logprobs, so the request is hand-rolled.
type RewardClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewRewardClient creates a reward-scoring client.
func NewRewardClient(cfg config.RewardConfig) *RewardClient {
	return &RewardClient{
		httpClient: &http.Client{Timeout: rewardRequestTimeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

type rewardMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type rewardRequest struct {
	Model    string          `json:"model"`
	Messages []rewardMessage `json:"messages"`
	Logprobs bool            `json:"logprobs"`
}

type rewardResponse struct {
	Choices []struct {
		Logprobs struct {
			Content []TokenLogprob `json:"content"`
		} `json:"logprobs"`
	} `json:"choices"`
}

// Trace submits an (input, output) pair as a two-turn exchange and returns
// the token-level logprob trace from the reward model.
func (c *RewardClient) Trace(ctx context.Context, input, output string) ([]TokenLogprob, error) {
	reqBody := rewardRequest{
		Model: c.model,
		Messages: []rewardMessage{
			{Role: "user", Content: input},
			{Role: "assistant", Content: output},
		},
		Logprobs: true,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode reward request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build reward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reward request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, wrapFatalError(fmt.Errorf("reward request: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded rewardResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode reward response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("no reward choices returned")
	}

	trace := decoded.Choices[0].Logprobs.Content
	slog.Debug("reward trace received", "model", c.model, "tokens", len(trace), "duration_ms", time.Since(start).Milliseconds())
	return trace, nil
}

// Model returns the reward model name.
func (c *RewardClient) Model() string {
	return c.model
}
