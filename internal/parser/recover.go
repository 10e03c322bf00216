// Package parser recovers structured training examples from raw LLM output.
//
// Completion services rarely return the clean JSON array they were asked
// for: responses come wrapped in prose, code fences, single quotes, trailing
// commas, or get truncated mid-array. Recovery runs a fixed-priority chain
// of strategies until one parses something usable.
package parser

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/softia/softia-go/internal/models"
)

// Sentinel errors for recovery. Use errors.Is() to check in calling code.
var (
	// ErrNoExamples indicates no strategy could parse anything from the response.
	ErrNoExamples = errors.New("no examples recovered from response")

	// ErrNoValidExamples indicates something parsed, but no element had both
	// a non-empty input and output.
	ErrNoValidExamples = errors.New("no valid examples in response")
)

var (
	// First top-level bracketed substring, non-greedy.
	firstArrayRe = regexp.MustCompile(`(?s)\[(.*?)\]`)

	// Bracketed array whose first element looks like an object, greedy.
	objectArrayRe = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

	// Individual object-shaped substrings with the expected keys.
	exampleObjectRe = regexp.MustCompile(`(?s)\{\s*"entrada"\s*:\s*".*?"\s*,\s*"salida"\s*:\s*".*?"\s*\}`)
)

// Strategy is one recovery heuristic. Extract returns the decoded array
// elements and whether the strategy matched; a non-match is a normal result,
// not an error, so the chain can move on.
type Strategy struct {
	Name    string
	Extract func(raw string) ([]any, bool)
}

// Strategies returns the recovery chain in priority order.
func Strategies() []Strategy {
	return []Strategy{
		{Name: "first_array", Extract: extractFirstArray},
		{Name: "object_array", Extract: extractObjectArray},
		{Name: "scattered_objects", Extract: extractScatteredObjects},
		{Name: "strip_fences", Extract: extractStripFences},
	}
}

// RecoverExamples extracts a dataset from raw completion text by trying each
// strategy in order, then discarding elements without both an input and an
// output. Order of the surviving examples matches their order in the text.
func RecoverExamples(raw string) (models.Dataset, error) {
	parsedAny := false

	for _, s := range Strategies() {
		items, ok := s.Extract(raw)
		if !ok || len(items) == 0 {
			continue
		}
		parsedAny = true

		examples := validateItems(items)
		if len(examples) == 0 {
			// Parsed, but nothing conforms to the schema. A later, more
			// aggressive strategy may still find the real payload.
			continue
		}

		slog.Debug("recovered examples", "strategy", s.Name, "parsed", len(items), "valid", len(examples))
		return examples, nil
	}

	if parsedAny {
		return nil, ErrNoValidExamples
	}
	return nil, ErrNoExamples
}

func extractFirstArray(raw string) ([]any, bool) {
	m := firstArrayRe.FindString(raw)
	if m == "" {
		return nil, false
	}
	return parseArray(m)
}

func extractObjectArray(raw string) ([]any, bool) {
	m := objectArrayRe.FindString(raw)
	if m == "" {
		return nil, false
	}
	return parseArray(m)
}

// extractScatteredObjects handles responses with example objects but no
// enclosing array. Each object parses independently; broken ones are skipped.
func extractScatteredObjects(raw string) ([]any, bool) {
	matches := exampleObjectRe.FindAllString(raw, -1)
	if len(matches) == 0 {
		return nil, false
	}

	var items []any
	for _, m := range matches {
		var obj map[string]any
		if err := json.Unmarshal([]byte(m), &obj); err != nil {
			repaired, repErr := jsonrepair.JSONRepair(m)
			if repErr != nil || json.Unmarshal([]byte(repaired), &obj) != nil {
				continue
			}
		}
		items = append(items, obj)
	}
	return items, len(items) > 0
}

// extractStripFences is the last resort: remove code-fence markers, then take
// everything from the first '[' to the last ']'.
func extractStripFences(raw string) ([]any, bool) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}
	return parseArray(cleaned[start : end+1])
}

// parseArray decodes a JSON array, running jsonrepair first if strict
// parsing fails. Repair handles single quotes, trailing commas, and
// truncated arrays.
func parseArray(s string) ([]any, bool) {
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err == nil {
		return items, true
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &items); err != nil {
		return nil, false
	}
	return items, true
}

// validateItems keeps only elements that are objects with non-empty
// entrada/salida string values, preserving order.
func validateItems(items []any) models.Dataset {
	var examples models.Dataset
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		input, _ := obj["entrada"].(string)
		output, _ := obj["salida"].(string)

		ex := models.Example{Input: input, Output: output}
		if ex.Valid() {
			examples = append(examples, ex)
		}
	}
	return examples
}
