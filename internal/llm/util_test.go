package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"score\": 80}\n```",
			expected: `{"score": 80}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"score\": 80}\n```",
			expected: `{"score": 80}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"score\": 80}\n```",
			expected: `{"score": 80}`,
		},
		{
			name:     "plain JSON",
			input:    `{"score": 80}`,
			expected: `{"score": 80}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestCleanJSONBlock_PreambleText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "Here is the evaluation:\n{\"score\": 72}",
			expected: `{"score": 72}`,
		},
		{
			name:     "preamble with multiple sentences",
			input:    "I reviewed the answer. It was solid. Result: {\"strengths\": [\"clarity\"]}",
			expected: `{"strengths": ["clarity"]}`,
		},
		{
			name:     "preamble before JSON array",
			input:    "Keywords:\n[\"kafka\", \"sharding\"]",
			expected: `["kafka", "sharding"]`,
		},
		{
			name:     "JSON with trailing text",
			input:    "{\"question\": \"Tell me about a conflict.\"}\n\nGood luck!",
			expected: `{"question": "Tell me about a conflict."}`,
		},
		{
			name:     "JSON with escaped quotes",
			input:    "Result: {\"feedback\": \"You said \\\"we\\\" a lot}\"}",
			expected: `{"feedback": "You said \"we\" a lot}"}`,
		},
		{
			name:     "fenced with preamble inside",
			input:    "```json\nSure!\n{\"a\": {\"b\": 1}}\n```",
			expected: `{"a": {"b": 1}}`,
		},
		{
			name:     "no JSON at all",
			input:    "  I cannot help with that.  ",
			expected: "I cannot help with that.",
		},
		{
			name:     "unterminated object is returned as is",
			input:    `{"score": 80`,
			expected: `{"score": 80`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple object", `{"key": "value"}`, `{"key": "value"}`},
		{"nested objects", `{"outer": {"inner": "value"}}`, `{"outer": {"inner": "value"}}`},
		{"object with array", `{"items": [1, 2, 3]}`, `{"items": [1, 2, 3]}`},
		{"object with trailing text", `{"key": "value"} and more`, `{"key": "value"}`},
		{"string with braces inside", `{"template": "Hello {name}!"}`, `{"template": "Hello {name}!"}`},
		{"empty input", "", ""},
		{"not starting with brace", "not json", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSONObject(tt.input))
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple array", `["a", "b", "c"]`, `["a", "b", "c"]`},
		{"nested arrays", `[[1, 2], [3, 4]]`, `[[1, 2], [3, 4]]`},
		{"array of objects", `[{"id": 1}, {"id": 2}]`, `[{"id": 1}, {"id": 2}]`},
		{"array with trailing text", `[1, 2, 3] extra stuff`, `[1, 2, 3]`},
		{"string with brackets inside", `["a]b"]`, `["a]b"]`},
		{"empty input", "", ""},
		{"not starting with bracket", "not array", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSONArray(tt.input))
		})
	}
}
