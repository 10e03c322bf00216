package serving

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tokenizerConfigFile is the HF-style tokenizer config inside a model dir.
const tokenizerConfigFile = "tokenizer_config.json"

// defaultSpecialTokens covers common control tokens when a model dir ships
// no tokenizer config.
var defaultSpecialTokens = []string{
	"<|begin_of_text|>",
	"<|end_of_text|>",
	"<|eot_id|>",
	"<s>",
	"</s>",
	"<pad>",
	"<unk>",
}

// Tokenizer knows the control tokens of a fine-tuned model so they can be
// stripped from decoded output.
type Tokenizer struct {
	EOSToken string
	PadToken string
	special  []string
}

// tokenizerConfig mirrors the fields we need from tokenizer_config.json.
// Token entries may be plain strings or {"content": ...} objects depending
// on the exporter, so they decode via RawMessage.
type tokenizerConfig struct {
	EOSToken                json.RawMessage   `json:"eos_token"`
	PadToken                json.RawMessage   `json:"pad_token"`
	AdditionalSpecialTokens []json.RawMessage `json:"additional_special_tokens"`
}

// LoadTokenizer reads the tokenizer config from a model directory. A missing
// config file is not an error: the default control-token set applies.
func LoadTokenizer(modelPath string) (*Tokenizer, error) {
	data, err := os.ReadFile(filepath.Join(modelPath, tokenizerConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Tokenizer{special: defaultSpecialTokens}, nil
		}
		return nil, fmt.Errorf("read tokenizer config: %w", err)
	}

	var cfg tokenizerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse tokenizer config: %w", err)
	}

	t := &Tokenizer{
		EOSToken: tokenString(cfg.EOSToken),
		PadToken: tokenString(cfg.PadToken),
	}

	// Pad falls back to EOS, same convention the training side uses.
	if t.PadToken == "" {
		t.PadToken = t.EOSToken
	}

	seen := make(map[string]bool)
	add := func(tok string) {
		if tok != "" && !seen[tok] {
			t.special = append(t.special, tok)
			seen[tok] = true
		}
	}
	add(t.EOSToken)
	add(t.PadToken)
	for _, raw := range cfg.AdditionalSpecialTokens {
		add(tokenString(raw))
	}
	for _, tok := range defaultSpecialTokens {
		add(tok)
	}

	return t, nil
}

// tokenString extracts a token from either a JSON string or an object with a
// "content" field.
func tokenString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Content
	}
	return ""
}

// StripSpecial removes control tokens from decoded output and trims
// surrounding whitespace.
func (t *Tokenizer) StripSpecial(s string) string {
	for _, tok := range t.special {
		s = strings.ReplaceAll(s, tok, "")
	}
	return strings.TrimSpace(s)
}
