package service

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/softia/softia-go/internal/metrics"
	"github.com/softia/softia-go/internal/models"
)

// TaskManager tracks background fine-tuning tasks in memory. Task state
// lives for the process lifetime; there is no eviction and no durable store,
// the table exists only to answer status queries.
type TaskManager struct {
	mu    sync.RWMutex
	tasks map[string]*models.TrainingTask
}

// NewTaskManager creates an empty task table.
func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[string]*models.TrainingTask),
	}
}

// Create registers a new task in the started state and returns it.
func (m *TaskManager) Create(useCase, outputDir string, datasetSize int) *models.TrainingTask {
	task := models.NewTrainingTask(uuid.New().String(), useCase, outputDir, datasetSize)

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()

	metrics.TrainingTasks.WithLabelValues(string(models.TaskStatusStarted)).Inc()
	slog.Info("training task created", "task_id", task.ID, "use_case", useCase, "dataset_size", datasetSize)
	return task
}

// Get retrieves a task by ID.
func (m *TaskManager) Get(id string) (*models.TrainingTask, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	return task, ok
}

// List returns snapshots of all tasks, most recent first.
func (m *TaskManager) List() []models.TaskSnapshot {
	m.mu.RLock()
	tasks := make([]*models.TrainingTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.RUnlock()

	slices.SortFunc(tasks, func(a, b *models.TrainingTask) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	snapshots := make([]models.TaskSnapshot, len(tasks))
	for i, t := range tasks {
		snapshots[i] = t.Snapshot()
	}
	return snapshots
}

// SetRunning marks a task as executing.
func (m *TaskManager) SetRunning(task *models.TrainingTask) {
	task.SetRunning()
	metrics.TrainingTasks.WithLabelValues(string(models.TaskStatusRunning)).Inc()
	slog.Info("training task running", "task_id", task.ID)
}

// Complete marks a task as finished successfully.
func (m *TaskManager) Complete(task *models.TrainingTask) {
	task.Complete()
	metrics.TrainingTasks.WithLabelValues(string(models.TaskStatusCompleted)).Inc()
	slog.Info("training task completed", "task_id", task.ID, "output_dir", task.OutputDir)
}

// Fail marks a task as failed. The error is recorded against the task and
// goes no further: the caller that scheduled the task already got its
// response.
func (m *TaskManager) Fail(task *models.TrainingTask, err error) {
	task.Fail(err)
	metrics.TrainingTasks.WithLabelValues(string(models.TaskStatusFailed)).Inc()
	slog.Error("training task failed", "task_id", task.ID, "error", err)
}
