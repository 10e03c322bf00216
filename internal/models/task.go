package models

import (
	"sync"
	"time"
)

// TaskStatus represents the state of a background fine-tuning task.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TrainingTask tracks one background fine-tuning run. Status and Error are
// written only by the background goroutine via the task manager; readers go
// through Snapshot.
type TrainingTask struct {
	ID          string
	UseCase     string
	OutputDir   string
	DatasetSize int
	StartedAt   time.Time

	mu          sync.RWMutex
	status      TaskStatus
	err         string
	completedAt *time.Time
}

// NewTrainingTask creates a task in the started state.
func NewTrainingTask(id, useCase, outputDir string, datasetSize int) *TrainingTask {
	return &TrainingTask{
		ID:          id,
		UseCase:     useCase,
		OutputDir:   outputDir,
		DatasetSize: datasetSize,
		StartedAt:   time.Now(),
		status:      TaskStatusStarted,
	}
}

// TaskSnapshot is a consistent read of a task's mutable state.
type TaskSnapshot struct {
	ID          string     `json:"task_id"`
	UseCase     string     `json:"use_case"`
	Status      TaskStatus `json:"status"`
	OutputDir   string     `json:"output_dir"`
	DatasetSize int        `json:"dataset_size"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns a point-in-time copy of the task state.
func (t *TrainingTask) Snapshot() TaskSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskSnapshot{
		ID:          t.ID,
		UseCase:     t.UseCase,
		Status:      t.status,
		OutputDir:   t.OutputDir,
		DatasetSize: t.DatasetSize,
		Error:       t.err,
		StartedAt:   t.StartedAt,
		CompletedAt: t.completedAt,
	}
}

// Status returns the current task status.
func (t *TrainingTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// SetRunning marks the task as executing.
func (t *TrainingTask) SetRunning() {
	t.mu.Lock()
	t.status = TaskStatusRunning
	t.mu.Unlock()
}

// Complete marks the task as finished successfully.
func (t *TrainingTask) Complete() {
	t.mu.Lock()
	t.status = TaskStatusCompleted
	now := time.Now()
	t.completedAt = &now
	t.mu.Unlock()
}

// Fail marks the task as failed with the given error.
func (t *TrainingTask) Fail(err error) {
	t.mu.Lock()
	t.status = TaskStatusFailed
	if err != nil {
		t.err = err.Error()
	}
	now := time.Now()
	t.completedAt = &now
	t.mu.Unlock()
}
