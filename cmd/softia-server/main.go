// Package main provides the softia API server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/softia/softia-go/internal/config"
	"github.com/softia/softia-go/internal/finetune"
	"github.com/softia/softia-go/internal/llm"
	"github.com/softia/softia-go/internal/server"
	"github.com/softia/softia-go/internal/service"
	"github.com/softia/softia-go/internal/serving"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Logging)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting softia-server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"llm_provider", cfg.LLM.Provider,
		"scoring_enabled", cfg.Generation.ScoringEnabled,
	)

	client, err := llm.NewCompletionClient(cfg.LLM)
	if err != nil {
		slog.Error("failed to create completion client", "error", err)
		os.Exit(1)
	}

	var scorer *service.Scorer
	if cfg.Generation.ScoringEnabled {
		reward := llm.NewRewardClient(cfg.Reward)
		scorer = service.NewScorer(reward, cfg.Generation.HelpfulnessThreshold)
	}

	gen := service.NewGenerator(client, scorer, service.GeneratorOptions{
		Temperature:    cfg.Generation.Temperature,
		MaxTokens:      cfg.Generation.MaxOutputTokens,
		ScoringEnabled: cfg.Generation.ScoringEnabled,
	})

	tasks := service.NewTaskManager()
	runner := finetune.NewRunner(cfg.Training)
	pipeline := service.NewPipeline(gen, tasks, runner, cfg.Training.OutputBaseDir)
	cache := serving.NewCache(cfg.Serving)

	srv := server.New(cfg.Server, logger, pipeline, cache, tasks, cfg.Training.OutputBaseDir)

	// Run until SIGINT or SIGTERM; the server drains in-flight requests on
	// shutdown. Background training tasks are not awaited, their state stays
	// in memory only.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
