package serving

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	response string
	err      error

	mu       sync.Mutex
	lastOpts llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.lastOpts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.response, f.err
}

func staticLoader(h *Handle) LoadFunc {
	return func(path string) (*Handle, error) {
		return h, nil
	}
}

func TestLoadOrGet(t *testing.T) {
	t.Run("same handle on repeated loads", func(t *testing.T) {
		var loads atomic.Int32
		cache := NewCacheWithLoader(func(path string) (*Handle, error) {
			loads.Add(1)
			return &Handle{Path: path, Tokenizer: &Tokenizer{}}, nil
		})

		first, err := cache.LoadOrGet("models/finetuned_faq")
		if err != nil {
			t.Fatalf("first load: %v", err)
		}
		second, err := cache.LoadOrGet("models/finetuned_faq")
		if err != nil {
			t.Fatalf("second load: %v", err)
		}
		if first != second {
			t.Error("repeated loads returned distinct handles")
		}
		if n := loads.Load(); n != 1 {
			t.Errorf("loader called %d times, want 1", n)
		}
	})

	t.Run("distinct paths load independently", func(t *testing.T) {
		cache := NewCacheWithLoader(func(path string) (*Handle, error) {
			return &Handle{Path: path}, nil
		})

		a, _ := cache.LoadOrGet("models/a")
		b, _ := cache.LoadOrGet("models/b")
		if a == b {
			t.Error("different paths share a handle")
		}
	})

	t.Run("concurrent first loads trigger one load", func(t *testing.T) {
		var loads atomic.Int32
		release := make(chan struct{})
		cache := NewCacheWithLoader(func(path string) (*Handle, error) {
			loads.Add(1)
			<-release
			return &Handle{Path: path}, nil
		})

		const callers = 8
		handles := make([]*Handle, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				h, err := cache.LoadOrGet("models/shared")
				if err != nil {
					t.Errorf("caller %d: %v", i, err)
				}
				handles[i] = h
			}(i)
		}
		close(release)
		wg.Wait()

		if n := loads.Load(); n != 1 {
			t.Errorf("loader called %d times, want 1", n)
		}
		for i := 1; i < callers; i++ {
			if handles[i] != handles[0] {
				t.Fatalf("caller %d got a different handle", i)
			}
		}
	})

	t.Run("failed load is retried", func(t *testing.T) {
		var loads atomic.Int32
		cache := NewCacheWithLoader(func(path string) (*Handle, error) {
			if loads.Add(1) == 1 {
				return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
			}
			return &Handle{Path: path}, nil
		})

		if _, err := cache.LoadOrGet("models/flaky"); !errors.Is(err, ErrModelNotFound) {
			t.Fatalf("first load error = %v, want ErrModelNotFound", err)
		}
		if _, err := cache.LoadOrGet("models/flaky"); err != nil {
			t.Fatalf("retry after failed load: %v", err)
		}
		if n := loads.Load(); n != 2 {
			t.Errorf("loader called %d times, want 2", n)
		}
	})
}

func TestPredict(t *testing.T) {
	t.Run("strips control tokens from output", func(t *testing.T) {
		model := &fakeModel{response: "<s>The answer is 42.</s>"}
		cache := NewCacheWithLoader(staticLoader(&Handle{
			Model:     model,
			Tokenizer: &Tokenizer{special: []string{"<s>", "</s>"}},
		}))

		got, err := cache.Predict(context.Background(), "models/x", "What is the answer?", 0, 0)
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		if got != "The answer is 42." {
			t.Errorf("Predict() = %q", got)
		}
	})

	t.Run("applies generation defaults", func(t *testing.T) {
		model := &fakeModel{response: "ok"}
		cache := NewCacheWithLoader(staticLoader(&Handle{
			Model:     model,
			Tokenizer: &Tokenizer{},
		}))

		if _, err := cache.Predict(context.Background(), "models/x", "hi", 0, 0); err != nil {
			t.Fatalf("Predict() error = %v", err)
		}

		model.mu.Lock()
		opts := model.lastOpts
		model.mu.Unlock()
		if opts.MaxTokens != 1024 {
			t.Errorf("max tokens = %d, want 1024", opts.MaxTokens)
		}
		if opts.Temperature != 0 {
			t.Errorf("temperature = %v, want 0", opts.Temperature)
		}
		if opts.CandidateCount != 1 {
			t.Errorf("candidate count = %d, want 1", opts.CandidateCount)
		}
	})

	t.Run("model error propagates", func(t *testing.T) {
		model := &fakeModel{err: errors.New("backend down")}
		cache := NewCacheWithLoader(staticLoader(&Handle{Model: model, Tokenizer: &Tokenizer{}}))

		if _, err := cache.Predict(context.Background(), "models/x", "hi", 0, 0); err == nil {
			t.Fatal("expected error from model failure")
		}
	})

	t.Run("empty prompt rejected", func(t *testing.T) {
		cache := NewCacheWithLoader(staticLoader(&Handle{}))
		if _, err := cache.Predict(context.Background(), "models/x", "", 0, 0); err == nil {
			t.Fatal("expected error for empty prompt")
		}
	})

	t.Run("load failure propagates", func(t *testing.T) {
		cache := NewCacheWithLoader(func(path string) (*Handle, error) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		})
		_, err := cache.Predict(context.Background(), "models/missing", "hi", 0, 0)
		if !errors.Is(err, ErrModelNotFound) {
			t.Fatalf("error = %v, want ErrModelNotFound", err)
		}
	})
}
