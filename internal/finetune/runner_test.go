package finetune

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/softia/softia-go/internal/config"
	"github.com/softia/softia-go/internal/models"
)

func testDataset() models.Dataset {
	return models.Dataset{
		{Input: "Q1", Output: "A1"},
		{Input: "Q2", Output: "A2"},
	}
}

func testConfig(url string) config.TrainingConfig {
	return config.TrainingConfig{
		RunnerURL:    url,
		APIKey:       "test-key",
		Epochs:       3,
		BatchSize:    4,
		LearningRate: 2e-5,
		MaxSeqLength: 512,
	}
}

func TestFinetune(t *testing.T) {
	t.Run("submits run and writes metrics", func(t *testing.T) {
		outputDir := t.TempDir()

		var gotReq finetuneRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/finetune" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected auth header %q", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			_, _ = w.Write([]byte(`{"status":"completed","metrics":{"train_loss":0.42,"epochs":3}}`))
		}))
		defer srv.Close()

		runner := NewRunner(testConfig(srv.URL))
		if err := runner.Finetune(context.Background(), testDataset(), outputDir, "support faq"); err != nil {
			t.Fatalf("Finetune() error = %v", err)
		}

		if gotReq.UseCase != "support faq" {
			t.Errorf("use case = %q, want %q", gotReq.UseCase, "support faq")
		}
		if len(gotReq.Dataset) != 2 {
			t.Errorf("submitted %d examples, want 2", len(gotReq.Dataset))
		}
		if gotReq.Hyperparameters.Epochs != 3 || gotReq.Hyperparameters.BatchSize != 4 {
			t.Errorf("unexpected hyperparameters %+v", gotReq.Hyperparameters)
		}

		data, err := os.ReadFile(filepath.Join(outputDir, MetricsFileName))
		if err != nil {
			t.Fatalf("read metrics file: %v", err)
		}
		var metrics map[string]float64
		if err := json.Unmarshal(data, &metrics); err != nil {
			t.Fatalf("parse metrics file: %v", err)
		}
		if metrics["train_loss"] != 0.42 {
			t.Errorf("train_loss = %v, want 0.42", metrics["train_loss"])
		}
	})

	t.Run("backend error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"failed","error":"CUDA out of memory"}`))
		}))
		defer srv.Close()

		runner := NewRunner(testConfig(srv.URL))
		err := runner.Finetune(context.Background(), testDataset(), t.TempDir(), "uc")
		if err == nil {
			t.Fatal("expected error from failed run")
		}
	})

	t.Run("http error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		runner := NewRunner(testConfig(srv.URL))
		if err := runner.Finetune(context.Background(), testDataset(), t.TempDir(), "uc"); err == nil {
			t.Fatal("expected error on HTTP 503")
		}
	})

	t.Run("unconfigured runner", func(t *testing.T) {
		runner := NewRunner(config.TrainingConfig{})
		err := runner.Finetune(context.Background(), testDataset(), t.TempDir(), "uc")
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("error = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("empty dataset rejected", func(t *testing.T) {
		runner := NewRunner(testConfig("http://localhost:1"))
		if err := runner.Finetune(context.Background(), models.Dataset{}, t.TempDir(), "uc"); err == nil {
			t.Fatal("expected error for empty dataset")
		}
	})
}
