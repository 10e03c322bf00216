package serving

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func makeModelDir(t *testing.T, base, name string) string {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	return dir
}

func TestListModels(t *testing.T) {
	t.Run("missing base dir yields empty list", func(t *testing.T) {
		infos, err := ListModels(filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
		if len(infos) != 0 {
			t.Errorf("got %d models, want 0", len(infos))
		}
	})

	t.Run("lists dirs with metrics", func(t *testing.T) {
		base := t.TempDir()
		makeModelDir(t, base, "finetuned_faq")
		dir := makeModelDir(t, base, "finetuned_support")
		if err := os.WriteFile(filepath.Join(dir, metricsFileName), []byte(`{"train_loss": 0.5}`), 0644); err != nil {
			t.Fatal(err)
		}
		// Stray files next to model dirs are ignored.
		if err := os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		infos, err := ListModels(base)
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
		if len(infos) != 2 {
			t.Fatalf("got %d models, want 2", len(infos))
		}

		byName := make(map[string]ModelInfo)
		for _, info := range infos {
			byName[info.Name] = info
		}
		if byName["finetuned_faq"].Metrics != nil {
			t.Error("expected no metrics for dir without metrics file")
		}
		if got := byName["finetuned_support"].Metrics["train_loss"]; got != 0.5 {
			t.Errorf("train_loss = %v, want 0.5", got)
		}
	})
}

func TestLatestModelDir(t *testing.T) {
	t.Run("picks most recently modified", func(t *testing.T) {
		base := t.TempDir()
		old := makeModelDir(t, base, "finetuned_old")
		recent := makeModelDir(t, base, "finetuned_recent")

		past := time.Now().Add(-time.Hour)
		if err := os.Chtimes(old, past, past); err != nil {
			t.Fatal(err)
		}

		got, err := LatestModelDir(base)
		if err != nil {
			t.Fatalf("LatestModelDir() error = %v", err)
		}
		if got != recent {
			t.Errorf("LatestModelDir() = %q, want %q", got, recent)
		}
	})

	t.Run("no models", func(t *testing.T) {
		_, err := LatestModelDir(t.TempDir())
		if !errors.Is(err, ErrModelNotFound) {
			t.Fatalf("error = %v, want ErrModelNotFound", err)
		}
	})

	t.Run("missing base dir", func(t *testing.T) {
		_, err := LatestModelDir(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrModelNotFound) {
			t.Fatalf("error = %v, want ErrModelNotFound", err)
		}
	})
}
