// Package voice converts spoken answers to text and questions to speech.
package voice

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
	"go.uber.org/zap"
)

// MaxAudioBytes caps a single submitted answer
const MaxAudioBytes = 20 << 20

// wordsPerSecond is the speaking rate used when the model reports no duration
const wordsPerSecond = 2.5

var supportedMIMETypes = map[string]bool{
	"audio/webm": true,
	"audio/ogg":  true,
	"audio/wav":  true,
	"audio/mpeg": true,
	"audio/mp4":  true,
	"audio/flac": true,
	"audio/aac":  true,
}

// GeminiTranscriber transcribes audio answers with a multimodal model
type GeminiTranscriber struct {
	client llm.Client
	logger *zap.Logger
}

// NewGeminiTranscriber creates a transcriber over client
func NewGeminiTranscriber(client llm.Client, logger *zap.Logger) *GeminiTranscriber {
	return &GeminiTranscriber{client: client, logger: logging.OrNop(logger)}
}

// Transcribe returns the text of audio using the model of the session's tier.
// Empty or unintelligible audio is a TranscriptionError.
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType, tier string) (*types.Transcript, error) {
	if len(audio) == 0 {
		return nil, &TranscriptionError{Message: "audio is empty"}
	}
	if len(audio) > MaxAudioBytes {
		return nil, &TranscriptionError{Message: "audio exceeds size limit"}
	}
	mimeType = NormalizeMIMEType(mimeType)
	if !supportedMIMETypes[mimeType] {
		return nil, &TranscriptionError{Message: "unsupported audio type " + mimeType}
	}

	prompt, err := prompts.Render(prompts.KeyTranscribe, nil)
	if err != nil {
		return nil, &TranscriptionError{Message: "failed to build prompt", Cause: err}
	}
	responseText, err := t.client.GenerateJSONFromAudio(ctx, prompt, audio, mimeType, llm.ParseTier(tier))
	if err != nil {
		return nil, &TranscriptionError{Message: "model call failed", Cause: err}
	}

	responseText = llm.CleanJSONBlock(responseText)
	if err := schemas.Validate(schemas.Transcript, responseText); err != nil {
		return nil, &TranscriptionError{Message: "unexpected response", Cause: err}
	}
	var out struct {
		Text            string  `json:"text"`
		DurationSeconds float64 `json:"duration_seconds"`
	}
	if err := json.Unmarshal([]byte(responseText), &out); err != nil {
		return nil, &TranscriptionError{Message: "failed to parse response", Cause: err}
	}

	text := strings.Join(strings.Fields(out.Text), " ")
	if text == "" {
		return nil, &TranscriptionError{Message: "no speech detected"}
	}
	words := len(strings.Fields(text))
	duration := out.DurationSeconds
	if duration <= 0 {
		duration = math.Round(float64(words)/wordsPerSecond*10) / 10
	}

	t.logger.Debug("audio transcribed",
		zap.String(logging.FieldModel, t.client.GetModel(llm.ParseTier(tier))),
		zap.Int("bytes", len(audio)),
		zap.Int("words", words),
		zap.Float64("duration_seconds", duration))
	return &types.Transcript{Text: text, DurationSeconds: duration, WordCount: words}, nil
}

// NormalizeMIMEType strips parameters such as codecs and maps common aliases.
func NormalizeMIMEType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "audio/x-wav", "audio/wave":
		return "audio/wav"
	case "audio/mp3":
		return "audio/mpeg"
	case "audio/x-m4a", "audio/m4a":
		return "audio/mp4"
	}
	return mimeType
}
