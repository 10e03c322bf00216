// Package client provides an HTTP client for the softia API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/softia/softia-go/internal/models"
	"github.com/softia/softia-go/internal/service"
	"github.com/softia/softia-go/internal/serving"
)

// Client talks to a running softia API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an API client.
// If endpoint is empty, uses the SOFTIA_SERVER_URL env var or defaults to
// localhost:8080. Timeout can be configured via SOFTIA_CLIENT_TIMEOUT
// (default 10m, generation and training hand-off can be slow).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("SOFTIA_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8080"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("SOFTIA_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TrainRequest is the payload for starting a training run.
type TrainRequest struct {
	UseCase    string   `json:"use_case"`
	NumSamples int      `json:"num_samples,omitempty"`
	Documents  []string `json:"documents,omitempty"`
}

// ChatRequest is the payload for querying a fine-tuned model.
type ChatRequest struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model,omitempty"`
	MaxLength    int    `json:"max_length,omitempty"`
	NumSequences int    `json:"num_sequences,omitempty"`
}

// ChatResponse is the answer from a fine-tuned model.
type ChatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// Train schedules dataset generation and fine-tuning on the server.
func (c *Client) Train(ctx context.Context, req TrainRequest) (*service.RunResult, error) {
	var result service.RunResult
	if err := c.post(ctx, "/api/train", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Chat sends a prompt to a fine-tuned model on the server.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Models lists the fine-tuned models known to the server.
func (c *Client) Models(ctx context.Context) ([]serving.ModelInfo, error) {
	var resp struct {
		Models []serving.ModelInfo `json:"models"`
	}
	if err := c.get(ctx, "/api/models", &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// TrainingStatus fetches the state of a training task.
func (c *Client) TrainingStatus(ctx context.Context, taskID string) (*models.TaskSnapshot, error) {
	var snap models.TaskSnapshot
	if err := c.get(ctx, "/api/training/status/"+taskID, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("server: HTTP %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
