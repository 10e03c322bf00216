package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/softia/softia-go/internal/models"
)

// Sentinel errors for pipeline input violations. Use errors.Is() to check.
var (
	// ErrInvalidInput indicates a request the pipeline refuses to start.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoUsableText indicates documents were supplied but none contained text.
	ErrNoUsableText = errors.New("no usable text in supplied documents")

	// ErrEmptyDataset indicates generation produced nothing to train on.
	ErrEmptyDataset = errors.New("generated dataset is empty")
)

// DatasetFileName is the dataset file written into each output directory.
const DatasetFileName = "training_data.json"

// seedExcerptLen caps the document excerpt embedded in seed examples.
const seedExcerptLen = 500

// DatasetSource generates a dataset for a use case.
type DatasetSource interface {
	Generate(ctx context.Context, useCase string, numSamples int, seeds []models.Example) (models.Dataset, error)
}

// Trainer is the fine-tuning collaborator. Finetune blocks until the run
// finishes; the pipeline always calls it from a background goroutine.
type Trainer interface {
	Finetune(ctx context.Context, ds models.Dataset, outputDir, useCase string) error
}

// RunResult is the immediate response of a pipeline run. Training continues
// in the background under the returned task ID.
type RunResult struct {
	Status      string `json:"status"`
	TaskID      string `json:"task_id"`
	OutputDir   string `json:"output_dir"`
	DatasetSize int    `json:"dataset_size"`
}

// StatusTrainingStarted is the status returned when scheduling succeeds.
const StatusTrainingStarted = "training_started"

// Pipeline orchestrates dataset generation, persistence, and the hand-off
// to background fine-tuning.
type Pipeline struct {
	gen     DatasetSource
	tasks   *TaskManager
	trainer Trainer
	baseDir string
}

// NewPipeline creates a training pipeline writing model output under baseDir.
func NewPipeline(gen DatasetSource, tasks *TaskManager, trainer Trainer, baseDir string) *Pipeline {
	return &Pipeline{gen: gen, tasks: tasks, trainer: trainer, baseDir: baseDir}
}

// Run executes the full pipeline for a use case: derive the output
// directory, build seed examples from any document text, generate and
// persist the dataset, then schedule fine-tuning. It returns as soon as the
// background task is scheduled; training progress is observable through the
// task manager.
//
// Any error before scheduling is returned synchronously and nothing is
// scheduled. Failures inside the background task are recorded against the
// task only.
func (p *Pipeline) Run(ctx context.Context, useCase string, numSamples int, documents []string) (*RunResult, error) {
	if strings.TrimSpace(useCase) == "" {
		return nil, fmt.Errorf("%w: use case must not be empty", ErrInvalidInput)
	}
	if numSamples < 1 {
		return nil, fmt.Errorf("%w: num samples must be at least 1, got %d", ErrInvalidInput, numSamples)
	}

	outputDir := filepath.Join(p.baseDir, models.ModelDirName(useCase))
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	seeds, err := SeedExamplesFromDocuments(documents)
	if err != nil {
		return nil, err
	}

	slog.Info("generating dataset", "use_case", useCase, "num_samples", numSamples, "seed_examples", len(seeds))
	ds, err := p.gen.Generate(ctx, useCase, numSamples, seeds)
	if err != nil {
		return nil, fmt.Errorf("generate dataset: %w", err)
	}
	if len(ds) == 0 {
		return nil, ErrEmptyDataset
	}

	if err := writeDataset(outputDir, ds); err != nil {
		return nil, err
	}
	slog.Info("dataset persisted", "path", filepath.Join(outputDir, DatasetFileName), "examples", len(ds))

	task := p.tasks.Create(useCase, outputDir, len(ds))
	go p.train(task, ds, outputDir, useCase)

	return &RunResult{
		Status:      StatusTrainingStarted,
		TaskID:      task.ID,
		OutputDir:   outputDir,
		DatasetSize: len(ds),
	}, nil
}

// train runs the fine-tuning collaborator and records the outcome against
// the task. Runs detached from the request context: once scheduled, a task
// runs to completion or failure regardless of the caller.
func (p *Pipeline) train(task *models.TrainingTask, ds models.Dataset, outputDir, useCase string) {
	defer func() {
		if r := recover(); r != nil {
			p.tasks.Fail(task, fmt.Errorf("training panicked: %v", r))
		}
	}()

	p.tasks.SetRunning(task)

	if err := p.trainer.Finetune(context.Background(), ds, outputDir, useCase); err != nil {
		p.tasks.Fail(task, err)
		return
	}
	p.tasks.Complete(task)
}

// SeedExamplesFromDocuments derives two few-shot examples from the supplied
// plain-text blocks. Blocks that produced no text upstream are skipped; if
// documents were supplied but nothing usable remains, that is a hard error,
// deliberately stricter than generation's placeholder policy.
func SeedExamplesFromDocuments(documents []string) ([]models.Example, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	usable := make([]string, 0, len(documents))
	for _, doc := range documents {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		usable = append(usable, doc)
	}
	if len(usable) == 0 {
		return nil, ErrNoUsableText
	}

	combined := strings.Join(usable, "\n")
	excerpt := combined
	if len(excerpt) > seedExcerptLen {
		excerpt = excerpt[:seedExcerptLen]
	}

	return []models.Example{
		{
			Input:  "What is the main topic of the uploaded documents?",
			Output: fmt.Sprintf("The uploaded documents cover the following topics:\n%s...", excerpt),
		},
		{
			Input:  "Provide a summary of the key points in the uploaded documents.",
			Output: fmt.Sprintf("Based on the uploaded documents, these are the key points:\n%s...", excerpt),
		},
	}, nil
}

// writeDataset serializes the dataset to <dir>/training_data.json,
// overwriting any previous run for the same use case.
func writeDataset(dir string, ds models.Dataset) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	path := filepath.Join(dir, DatasetFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}
