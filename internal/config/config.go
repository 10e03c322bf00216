// Package config loads service configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Reward     RewardConfig     `yaml:"reward"`
	Generation GenerationConfig `yaml:"generation"`
	Training   TrainingConfig   `yaml:"training"`
	Serving    ServingConfig    `yaml:"serving"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig configures the text-completion provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// RewardConfig configures the reward-scoring endpoint. The endpoint must be
// OpenAI-compatible and return token logprobs in the completion choice.
type RewardConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// GenerationConfig configures dataset generation sampling and filtering.
type GenerationConfig struct {
	Temperature          float64 `yaml:"temperature"`
	MaxOutputTokens      int     `yaml:"max_output_tokens"`
	ScoringEnabled       bool    `yaml:"scoring_enabled"`
	HelpfulnessThreshold float64 `yaml:"helpfulness_threshold"`
}

// TrainingConfig configures the fine-tuning hand-off.
type TrainingConfig struct {
	OutputBaseDir string  `yaml:"output_base_dir"`
	RunnerURL     string  `yaml:"runner_url"`
	APIKey        string  `yaml:"api_key"`
	Epochs        int     `yaml:"epochs"`
	BatchSize     int     `yaml:"batch_size"`
	LearningRate  float64 `yaml:"learning_rate"`
	MaxSeqLength  int     `yaml:"max_seq_length"`
}

// ServingConfig configures the model serving path.
type ServingConfig struct {
	// BackendHost is the inference backend serving fine-tuned models.
	BackendHost string `yaml:"backend_host"`
}

// LoggingConfig configures the dual-output logger.
type LoggingConfig struct {
	File string `yaml:"file"`
	// LevelName is the textual level from YAML; parsed into Level on load.
	LevelName string     `yaml:"level"`
	Level     slog.Level `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Model:    "nvidia/nemotron-4-340b-instruct",
		},
		Reward: RewardConfig{
			Model: "nvidia/nemotron-4-340b-reward",
		},
		Generation: GenerationConfig{
			Temperature:          0.7,
			MaxOutputTokens:      4096,
			ScoringEnabled:       false,
			HelpfulnessThreshold: 3.0,
		},
		Training: TrainingConfig{
			OutputBaseDir: "models",
			Epochs:        3,
			BatchSize:     4,
			LearningRate:  2e-5,
			MaxSeqLength:  512,
		},
		Serving: ServingConfig{
			BackendHost: "http://localhost:11434",
		},
		Logging: LoggingConfig{
			File:  "/tmp/softia.log",
			Level: slog.LevelInfo,
		},
	}
}

// Load reads configuration from the YAML file at path (skipped if path is
// empty or missing) and then applies environment-variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Logging.LevelName != "" {
		cfg.Logging.Level = parseLogLevel(cfg.Logging.LevelName)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SOFTIA_SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SOFTIA_SERVER_PORT", cfg.Server.Port)

	cfg.LLM.Provider = getEnv("SOFTIA_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("SOFTIA_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.APIKey = getEnv("SOFTIA_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.BaseURL = getEnv("SOFTIA_LLM_BASE_URL", cfg.LLM.BaseURL)

	cfg.Reward.Model = getEnv("SOFTIA_REWARD_MODEL", cfg.Reward.Model)
	cfg.Reward.APIKey = getEnv("SOFTIA_REWARD_API_KEY", cfg.Reward.APIKey)
	cfg.Reward.BaseURL = getEnv("SOFTIA_REWARD_BASE_URL", cfg.Reward.BaseURL)

	cfg.Training.OutputBaseDir = getEnv("SOFTIA_OUTPUT_DIR", cfg.Training.OutputBaseDir)
	cfg.Training.RunnerURL = getEnv("SOFTIA_RUNNER_URL", cfg.Training.RunnerURL)
	cfg.Training.APIKey = getEnv("SOFTIA_RUNNER_API_KEY", cfg.Training.APIKey)

	cfg.Serving.BackendHost = getEnv("SOFTIA_SERVING_HOST", cfg.Serving.BackendHost)

	cfg.Logging.File = getEnv("SOFTIA_LOG_FILE", cfg.Logging.File)
	if lvl := os.Getenv("SOFTIA_LOG_LEVEL"); lvl != "" {
		cfg.Logging.LevelName = lvl
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
