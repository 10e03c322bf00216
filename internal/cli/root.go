// Package cli provides the command-line interface for softia.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/softia/softia-go/internal/config"
	"github.com/softia/softia-go/internal/llm"
	"github.com/softia/softia-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	serverURL  string
	verbose    bool

	// Global config, loaded in PersistentPreRunE
	cfg config.Config

	// logCloser releases the log file after the command finishes.
	logCloser func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "softia",
	Short: "Synthetic dataset generation and fine-tuning",
	Long: `Softia turns a natural-language use case into an instruction dataset and a
fine-tuned model.

Datasets are generated with a base LLM, quality-scored with a reward model,
and handed to a training backend. Trained models are served back for chat.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = slog.LevelDebug
		}
		logger, closer := config.SetupLogger(cfg.Logging)
		slog.SetDefault(logger)
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			if err := logCloser(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// buildGenerator wires the completion client, reward scorer, and generator
// from the loaded config. Commands that only read local state skip this.
func buildGenerator() (*service.Generator, error) {
	client, err := llm.NewCompletionClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init completion client: %w", err)
	}

	var scorer *service.Scorer
	if cfg.Generation.ScoringEnabled {
		reward := llm.NewRewardClient(cfg.Reward)
		scorer = service.NewScorer(reward, cfg.Generation.HelpfulnessThreshold)
	}

	return service.NewGenerator(client, scorer, service.GeneratorOptions{
		Temperature:    cfg.Generation.Temperature,
		MaxTokens:      cfg.Generation.MaxOutputTokens,
		ScoringEnabled: cfg.Generation.ScoringEnabled,
	}), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "run against a softia server instead of in-process")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
}
