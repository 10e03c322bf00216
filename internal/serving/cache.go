// Package serving loads fine-tuned models and serves predictions from a
// process-wide cache.
package serving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/softia/softia-go/internal/config"
	"github.com/softia/softia-go/internal/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ErrModelNotFound indicates the model path does not exist.
var ErrModelNotFound = errors.New("model not found")

// Handle bundles the loaded model client and tokenizer for one model path.
// All requests for the same path share one handle.
type Handle struct {
	Path      string
	Model     llms.Model
	Tokenizer *Tokenizer
}

// LoadFunc loads a model handle from a path.
type LoadFunc func(path string) (*Handle, error)

// Cache is the process-wide model cache keyed by exact path string. Entries
// are never evicted; they live as long as the process. The load-or-insert
// sequence holds a per-key in-flight entry, so concurrent first requests for
// one path trigger exactly one load and everyone shares the result.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	load    LoadFunc
}

type cacheEntry struct {
	ready  chan struct{}
	handle *Handle
	err    error
}

// NewCache creates a model cache loading models through the configured
// serving backend.
func NewCache(cfg config.ServingConfig) *Cache {
	return NewCacheWithLoader(backendLoader(cfg.BackendHost))
}

// NewCacheWithLoader creates a cache with a custom loader (for testing).
func NewCacheWithLoader(load LoadFunc) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		load:    load,
	}
}

// LoadOrGet returns the cached handle for path, loading it on first use.
// Concurrent callers for the same path block until the single load
// finishes. Failed loads are not cached, so a later call can retry.
func (c *Cache) LoadOrGet(path string) (*Handle, error) {
	c.mu.Lock()
	if e, ok := c.entries[path]; ok {
		c.mu.Unlock()
		<-e.ready
		if e.err != nil {
			return nil, e.err
		}
		slog.Debug("model served from cache", "path", path)
		return e.handle, nil
	}

	e := &cacheEntry{ready: make(chan struct{})}
	c.entries[path] = e
	c.mu.Unlock()

	e.handle, e.err = c.load(path)
	if e.err != nil {
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
	} else {
		slog.Info("model loaded and cached", "path", path)
	}
	close(e.ready)

	if e.err != nil {
		return nil, e.err
	}
	return e.handle, nil
}

// Predict generates a completion from the model at path. Deterministic
// settings: greedy decoding with repeat suppression and a bounded output
// length. Errors propagate; prediction has no placeholder fallback, a wrong
// answer is worse than an error here.
func (c *Cache) Predict(ctx context.Context, path, prompt string, maxLength, numSequences int) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}
	if maxLength <= 0 {
		maxLength = 1024
	}
	if numSequences <= 0 {
		numSequences = 1
	}

	h, err := c.LoadOrGet(path)
	if err != nil {
		return "", err
	}

	start := time.Now()
	response, err := h.Model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithMaxTokens(maxLength),
		llms.WithTemperature(0),
		llms.WithRepetitionPenalty(1.3),
		llms.WithCandidateCount(numSequences),
	)
	metrics.PredictDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no sequences generated")
	}

	// Only the first sequence is decoded and returned.
	return h.Tokenizer.StripSpecial(response.Choices[0].Content), nil
}

// backendLoader returns the default loader: the model directory must exist
// on disk, its tokenizer config is read from there, and generation goes
// through the inference backend serving that model.
func backendLoader(backendHost string) LoadFunc {
	return func(path string) (*Handle, error) {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
			}
			return nil, fmt.Errorf("stat model path: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrModelNotFound, path)
		}

		tokenizer, err := LoadTokenizer(path)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}

		model, err := ollama.New(
			ollama.WithModel(filepath.Base(path)),
			ollama.WithServerURL(backendHost),
		)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}

		return &Handle{Path: path, Model: model, Tokenizer: tokenizer}, nil
	}
}
