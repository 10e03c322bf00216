package parser

import (
	"errors"
	"testing"
)

func TestRecoverExamples(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantInputs []string
	}{
		{
			name:       "clean array",
			raw:        `[{"entrada":"Q1","salida":"A1"},{"entrada":"Q2","salida":"A2"}]`,
			wantInputs: []string{"Q1", "Q2"},
		},
		{
			name:       "array with surrounding prose",
			raw:        `Here is the data: [{"entrada":"Q1","salida":"A1"},{"entrada":"Q2","salida":"A2"}] Hope this helps!`,
			wantInputs: []string{"Q1", "Q2"},
		},
		{
			name: "code fences with prose",
			raw: "Sure! Here you go:\n```json\n" +
				`[{"entrada":"Q1","salida":"A1"},{"entrada":"Q2","salida":"A2"}]` +
				"\n```\nLet me know if you need more.",
			wantInputs: []string{"Q1", "Q2"},
		},
		{
			name: "scattered objects without enclosing array",
			raw: `First example: {"entrada": "Q1", "salida": "A1"}
And another: {"entrada": "Q2", "salida": "A2"}`,
			wantInputs: []string{"Q1", "Q2"},
		},
		{
			name:       "trailing comma repaired",
			raw:        `[{"entrada":"Q1","salida":"A1"},{"entrada":"Q2","salida":"A2"},]`,
			wantInputs: []string{"Q1", "Q2"},
		},
		{
			name:       "single quotes repaired",
			raw:        `[{'entrada':'Q1','salida':'A1'}]`,
			wantInputs: []string{"Q1"},
		},
		{
			// No closing bracket: the complete leading objects are still
			// recovered individually.
			name:       "truncated array",
			raw:        `[{"entrada":"Q1","salida":"A1"},{"entrada":"Q2","salida":"A2"`,
			wantInputs: []string{"Q1"},
		},
		{
			name:       "non-object elements discarded",
			raw:        `[1, {"entrada":"Q1","salida":"A1"}, "noise", {"entrada":"Q2","salida":"A2"}]`,
			wantInputs: []string{"Q1", "Q2"},
		},
		{
			name:       "elements missing keys discarded",
			raw:        `[{"entrada":"Q1","salida":"A1"},{"entrada":"no output"},{"pregunta":"wrong","respuesta":"keys"}]`,
			wantInputs: []string{"Q1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RecoverExamples(tt.raw)
			if err != nil {
				t.Fatalf("RecoverExamples() error = %v", err)
			}
			if len(got) != len(tt.wantInputs) {
				t.Fatalf("got %d examples, want %d", len(got), len(tt.wantInputs))
			}
			for i, want := range tt.wantInputs {
				if got[i].Input != want {
					t.Errorf("example %d input = %q, want %q", i, got[i].Input, want)
				}
				if got[i].Output == "" {
					t.Errorf("example %d has empty output", i)
				}
			}
		})
	}

	t.Run("no parsable content", func(t *testing.T) {
		_, err := RecoverExamples("I'm sorry, I can't help with that.")
		if !errors.Is(err, ErrNoExamples) {
			t.Fatalf("error = %v, want ErrNoExamples", err)
		}
	})

	t.Run("parsable but nothing valid", func(t *testing.T) {
		_, err := RecoverExamples(`[1, 2, 3]`)
		if !errors.Is(err, ErrNoValidExamples) {
			t.Fatalf("error = %v, want ErrNoValidExamples", err)
		}
	})

	t.Run("empty input preserved order", func(t *testing.T) {
		raw := `[{"entrada":"B","salida":"2"},{"entrada":"A","salida":"1"},{"entrada":"C","salida":"3"}]`
		got, err := RecoverExamples(raw)
		if err != nil {
			t.Fatalf("RecoverExamples() error = %v", err)
		}
		want := []string{"B", "A", "C"}
		for i := range want {
			if got[i].Input != want[i] {
				t.Errorf("example %d input = %q, want %q (order must match response)", i, got[i].Input, want[i])
			}
		}
	})
}

func TestExtractStripFences(t *testing.T) {
	raw := "Some text before\n```json\n" +
		`[{"entrada":"Q1","salida":"A1"}]` +
		"\n```\nand after."
	items, ok := extractStripFences(raw)
	if !ok {
		t.Fatal("extractStripFences() did not match")
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestExtractScatteredObjects(t *testing.T) {
	raw := `Example one: {"entrada": "Q1", "salida": "A1"}, example two: {"entrada": "Q2", "salida": "A2"}.`
	items, ok := extractScatteredObjects(raw)
	if !ok {
		t.Fatal("extractScatteredObjects() did not match")
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestStrategies(t *testing.T) {
	names := []string{"first_array", "object_array", "scattered_objects", "strip_fences"}
	strategies := Strategies()
	if len(strategies) != len(names) {
		t.Fatalf("got %d strategies, want %d", len(strategies), len(names))
	}
	for i, want := range names {
		if strategies[i].Name != want {
			t.Errorf("strategy %d = %q, want %q", i, strategies[i].Name, want)
		}
	}
}
