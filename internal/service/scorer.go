package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/softia/softia-go/internal/llm"
	"github.com/softia/softia-go/internal/metrics"
	"github.com/softia/softia-go/internal/models"
)

// DefaultHelpfulnessThreshold is the minimum helpfulness logprob an example
// needs to survive quality filtering.
const DefaultHelpfulnessThreshold = 3.0

// Tracer provides token-level logprob traces from a reward model.
type Tracer interface {
	Trace(ctx context.Context, input, output string) ([]llm.TokenLogprob, error)
}

// Scorer turns reward-model traces into named quality metrics and decides
// which examples pass. It never fails its caller: transport or parse errors
// degrade to all-zero metrics.
type Scorer struct {
	tracer    Tracer
	threshold float64
}

// NewScorer creates a quality scorer. A threshold of 0 selects the default.
func NewScorer(tracer Tracer, threshold float64) *Scorer {
	if threshold == 0 {
		threshold = DefaultHelpfulnessThreshold
	}
	return &Scorer{tracer: tracer, threshold: threshold}
}

// Score rates one input/output pair. On any failure it returns neutral
// all-zero metrics rather than an error.
func (s *Scorer) Score(ctx context.Context, input, output string) models.QualityMetrics {
	trace, err := s.tracer.Trace(ctx, input, output)
	if err != nil {
		slog.Warn("reward scoring failed, using neutral metrics", "error", err)
		metrics.ScoringFailures.Inc()
		return models.QualityMetrics{}
	}
	return metricsFromTrace(trace)
}

// metricsFromTrace matches trace tokens against the five metric names.
// Only the first occurrence of each name fixes its value; unknown tokens are
// ignored and unseen metrics stay at 0.
func metricsFromTrace(trace []llm.TokenLogprob) models.QualityMetrics {
	var m models.QualityMetrics
	seen := make(map[string]bool, 5)

	for _, tok := range trace {
		name := strings.ToLower(strings.TrimSpace(tok.Token))
		if seen[name] {
			continue
		}
		switch name {
		case "helpfulness":
			m.Helpfulness = tok.Logprob
		case "correctness":
			m.Correctness = tok.Logprob
		case "coherence":
			m.Coherence = tok.Logprob
		case "complexity":
			m.Complexity = tok.Logprob
		case "verbosity":
			m.Verbosity = tok.Logprob
		default:
			continue
		}
		seen[name] = true
	}
	return m
}

// Accepts reports whether metrics clear the quality threshold.
func (s *Scorer) Accepts(m models.QualityMetrics) bool {
	return m.Helpfulness >= s.threshold
}

// Filter scores every example and keeps those passing the threshold,
// preserving input order. Scoring calls run concurrently; results land in
// per-index slots so ordering never depends on completion timing.
//
// Fail-open: if filtering would discard everything, the full scored set is
// returned instead so the pipeline never ends up with an empty dataset here.
func (s *Scorer) Filter(ctx context.Context, ds models.Dataset) models.Dataset {
	if len(ds) == 0 {
		return ds
	}

	scored := make([]models.QualityMetrics, len(ds))
	var wg sync.WaitGroup
	for i := range ds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scored[i] = s.Score(ctx, ds[i].Input, ds[i].Output)
		}()
	}
	wg.Wait()

	for i := range ds {
		ds[i].Metrics = &scored[i]
	}

	kept := make(models.Dataset, 0, len(ds))
	for _, ex := range ds {
		if s.Accepts(*ex.Metrics) {
			kept = append(kept, ex)
		}
	}

	if len(kept) == 0 {
		slog.Warn("quality filter rejected all examples, keeping unfiltered set",
			"examples", len(ds), "threshold", s.threshold)
		return ds
	}

	slog.Info("quality filter applied", "kept", len(kept), "rejected", len(ds)-len(kept))
	return kept
}
