package serving

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// metricsFileName matches the file the fine-tune runner writes.
const metricsFileName = "training_metrics.json"

// ModelInfo describes one fine-tuned model directory.
type ModelInfo struct {
	Name    string             `json:"name"`
	Created time.Time          `json:"created"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// ListModels returns all fine-tuned model directories under baseDir with
// their training metrics when available. A missing base dir yields an empty
// list, not an error.
func ListModels(baseDir string) ([]ModelInfo, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ModelInfo{}, nil
		}
		return nil, fmt.Errorf("read model dir: %w", err)
	}

	infos := make([]ModelInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info := ModelInfo{Name: entry.Name()}
		if fi, err := entry.Info(); err == nil {
			info.Created = fi.ModTime()
		}

		data, err := os.ReadFile(filepath.Join(baseDir, entry.Name(), metricsFileName))
		if err == nil {
			var m map[string]float64
			if json.Unmarshal(data, &m) == nil {
				info.Metrics = m
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// LatestModelDir returns the most recently modified model directory under
// baseDir, for callers that do not name a model explicitly.
func LatestModelDir(baseDir string) (string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrModelNotFound, baseDir)
	}

	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || fi.ModTime().After(latestMod) {
			latest = entry.Name()
			latestMod = fi.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w: no fine-tuned models under %s", ErrModelNotFound, baseDir)
	}
	return filepath.Join(baseDir, latest), nil
}
