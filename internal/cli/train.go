package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/softia/softia-go/internal/client"
	"github.com/softia/softia-go/internal/finetune"
	"github.com/softia/softia-go/internal/models"
	"github.com/softia/softia-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	trainNumSamples int
	trainDocFiles   []string
	trainNoWait     bool
)

var trainCmd = &cobra.Command{
	Use:   "train <use case>",
	Short: "Generate a dataset and fine-tune a model for a use case",
	Long: `Run the full pipeline for a use case: generate a dataset, persist it, and
fine-tune a model on the training backend.

By default the command waits for training to finish. With --no-wait it
returns as soon as the task is scheduled; check progress with the server's
training status endpoint.

Examples:
  softia train "customer support for a bank"
  softia train "password reset help" -n 100 --doc runbook.txt
  softia train "internal wiki QA" --no-wait`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().IntVarP(&trainNumSamples, "num-samples", "n", 10, "number of examples to generate")
	trainCmd.Flags().StringSliceVar(&trainDocFiles, "doc", nil, "document file to seed generation (repeatable)")
	trainCmd.Flags().BoolVar(&trainNoWait, "no-wait", false, "do not wait for training to finish")
}

func runTrain(cmd *cobra.Command, args []string) error {
	useCase := args[0]
	ctx := context.Background()

	docs := make([]string, 0, len(trainDocFiles))
	for _, path := range trainDocFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read document %s: %w", path, err)
		}
		docs = append(docs, string(data))
	}

	if serverURL != "" {
		return trainRemote(ctx, useCase, docs)
	}

	gen, err := buildGenerator()
	if err != nil {
		return err
	}

	tasks := service.NewTaskManager()
	runner := finetune.NewRunner(cfg.Training)
	pipeline := service.NewPipeline(gen, tasks, runner, cfg.Training.OutputBaseDir)

	result, err := pipeline.Run(ctx, useCase, trainNumSamples, docs)
	if err != nil {
		return err
	}

	fmt.Printf("Dataset of %d examples written to %s\n", result.DatasetSize, result.OutputDir)
	fmt.Printf("Training task %s scheduled\n", result.TaskID)

	if trainNoWait {
		return nil
	}

	task, ok := tasks.Get(result.TaskID)
	if !ok {
		return fmt.Errorf("task %s vanished", result.TaskID)
	}
	return waitForTask(task)
}

// trainRemote schedules the run on a server and optionally polls the task
// status endpoint until training finishes.
func trainRemote(ctx context.Context, useCase string, docs []string) error {
	c := client.New(serverURL)
	result, err := c.Train(ctx, client.TrainRequest{
		UseCase:    useCase,
		NumSamples: trainNumSamples,
		Documents:  docs,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Dataset of %d examples written to %s\n", result.DatasetSize, result.OutputDir)
	fmt.Printf("Training task %s scheduled\n", result.TaskID)

	if trainNoWait {
		return nil
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	fmt.Print("Training")
	for range ticker.C {
		snap, err := c.TrainingStatus(ctx, result.TaskID)
		if err != nil {
			fmt.Println()
			return err
		}
		if !snap.Status.Terminal() {
			fmt.Print(".")
			continue
		}
		fmt.Println()

		if snap.Status == models.TaskStatusFailed {
			return fmt.Errorf("training failed: %s", snap.Error)
		}
		fmt.Printf("Training completed, model saved under %s\n", snap.OutputDir)
		return nil
	}
	return nil
}

// waitForTask polls the task until it reaches a terminal state.
func waitForTask(task *models.TrainingTask) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	fmt.Print("Training")
	for range ticker.C {
		snap := task.Snapshot()
		if !snap.Status.Terminal() {
			fmt.Print(".")
			continue
		}
		fmt.Println()

		if snap.Status == models.TaskStatusFailed {
			return fmt.Errorf("training failed: %s", snap.Error)
		}
		fmt.Printf("Training completed, model saved under %s\n", snap.OutputDir)
		return nil
	}
	return nil
}
