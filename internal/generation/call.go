// Package generation turns interview state into AI prompts and AI responses
// back into typed questions, evaluations and reports.
package generation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"go.uber.org/zap"
)

const (
	notProvided = "(not provided)"
	noneYet     = "(none yet)"
	logExcerpt  = 300
)

// callJSON renders a prompt, asks the model for JSON and decodes the response
// into out after validating it against the named schema.
func callJSON(ctx context.Context, client llm.Client, logger *zap.Logger, key string, data map[string]string, tier llm.ModelTier, schema string, out any) error {
	prompt, err := prompts.Render(key, data)
	if err != nil {
		return &APICallError{Message: "failed to build prompt", Cause: err}
	}

	responseText, err := client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return &APICallError{Message: "failed to generate content from LLM", Cause: err}
	}
	return decode(logger, responseText, schema, out)
}

func decode(logger *zap.Logger, responseText, schema string, out any) error {
	responseText = llm.CleanJSONBlock(responseText)
	if err := schemas.Validate(schema, responseText); err != nil {
		logger.Warn("AI response failed schema validation",
			zap.String("schema", schema),
			zap.String("response", logging.Truncate(responseText, logExcerpt)),
			zap.Error(err))
		return &ParseError{Message: "response does not match " + schema + " schema", Cause: err}
	}
	if err := json.Unmarshal([]byte(responseText), out); err != nil {
		return &ParseError{Message: "failed to parse JSON response", Cause: err}
	}
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func joinList(items []string) string {
	if len(items) == 0 {
		return notProvided
	}
	return strings.Join(items, ", ")
}

// cleanList trims entries, drops empties and never returns nil.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}
