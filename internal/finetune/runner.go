// Package finetune submits training runs to an external fine-tuning backend.
//
// The backend owns the actual training loop; this client hands it a dataset
// and waits for the run to finish. It is only ever called from the
// pipeline's background task, so blocking here is fine.
package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/softia/softia-go/internal/config"
	"github.com/softia/softia-go/internal/models"
)

// MetricsFileName is the training-metrics file written into the output dir
// after a successful run.
const MetricsFileName = "training_metrics.json"

// ErrNotConfigured indicates no training backend URL is set.
var ErrNotConfigured = errors.New("no training runner configured")

// Runner is an HTTP client for the fine-tuning backend.
type Runner struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	epochs       int
	batchSize    int
	learningRate float64
	maxSeqLength int
}

// NewRunner creates a fine-tuning runner from training configuration.
func NewRunner(cfg config.TrainingConfig) *Runner {
	return &Runner{
		// Training runs for minutes to hours; the request lives as long as
		// the run. Cancellation comes from the context, not a client timeout.
		httpClient:   &http.Client{Timeout: 0},
		baseURL:      strings.TrimSuffix(cfg.RunnerURL, "/"),
		apiKey:       cfg.APIKey,
		epochs:       cfg.Epochs,
		batchSize:    cfg.BatchSize,
		learningRate: cfg.LearningRate,
		maxSeqLength: cfg.MaxSeqLength,
	}
}

type finetuneRequest struct {
	UseCase         string          `json:"use_case"`
	OutputDir       string          `json:"output_dir"`
	Dataset         models.Dataset  `json:"dataset"`
	Hyperparameters hyperparameters `json:"hyperparameters"`
}

type hyperparameters struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	MaxSeqLength int     `json:"max_seq_length"`
}

type finetuneResponse struct {
	Status  string             `json:"status"`
	Metrics map[string]float64 `json:"metrics"`
	Error   string             `json:"error"`
}

// Finetune submits the dataset and blocks until the backend reports the run
// finished. On success, returned training metrics are written to
// <outputDir>/training_metrics.json.
func (r *Runner) Finetune(ctx context.Context, ds models.Dataset, outputDir, useCase string) error {
	if r.baseURL == "" {
		return ErrNotConfigured
	}
	if len(ds) == 0 {
		return fmt.Errorf("dataset must not be empty")
	}

	payload, err := json.Marshal(finetuneRequest{
		UseCase:   useCase,
		OutputDir: outputDir,
		Dataset:   ds,
		Hyperparameters: hyperparameters{
			Epochs:       r.epochs,
			BatchSize:    r.batchSize,
			LearningRate: r.learningRate,
			MaxSeqLength: r.maxSeqLength,
		},
	})
	if err != nil {
		return fmt.Errorf("encode finetune request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/finetune", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build finetune request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	slog.Info("submitting fine-tune run", "use_case", useCase, "examples", len(ds), "output_dir", outputDir)
	start := time.Now()

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("finetune request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("finetune request: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded finetuneResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode finetune response: %w", err)
	}
	if decoded.Error != "" {
		return fmt.Errorf("finetune run failed: %s", decoded.Error)
	}

	slog.Info("fine-tune run finished", "use_case", useCase, "duration_s", int(time.Since(start).Seconds()))

	if len(decoded.Metrics) > 0 {
		if err := writeMetrics(outputDir, decoded.Metrics); err != nil {
			// The model trained; losing the metrics file is not fatal.
			slog.Warn("failed to write training metrics", "output_dir", outputDir, "error", err)
		}
	}
	return nil
}

func writeMetrics(dir string, m map[string]float64) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetricsFileName), data, 0644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
