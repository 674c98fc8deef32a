package tokenizer

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Real encoders need network access to fetch BPE files.
	Approximate = true
	os.Exit(m.Run())
}

func TestCountTokens_Approximate(t *testing.T) {
	if got := CountTokens("test-model", ""); got != 0 {
		t.Errorf("Expected 0 tokens for empty text, got %d", got)
	}

	text := strings.Repeat("word ", 100)
	got := CountTokens("test-model", text)
	if got <= 0 {
		t.Errorf("Expected a positive token count, got %d", got)
	}

	longer := CountTokens("test-model", text+text)
	if longer <= got {
		t.Errorf("Expected longer text to count more tokens: %d vs %d", longer, got)
	}
}

func TestTruncate_Approximate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxTokens int
		expected  string
	}{
		{
			name:      "short text untouched",
			text:      "one two three",
			maxTokens: 10,
			expected:  "one two three",
		},
		{
			name:      "long text cut at word boundary",
			text:      "one two three four five",
			maxTokens: 3,
			expected:  "one two three",
		},
		{
			name:      "zero budget",
			text:      "one two three",
			maxTokens: 0,
			expected:  "",
		},
		{
			name:      "whitespace collapsed",
			text:      "  one\t\ttwo \n three  ",
			maxTokens: 10,
			expected:  "one two three",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate("test-model", tt.text, tt.maxTokens); got != tt.expected {
				t.Errorf("Truncate() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
