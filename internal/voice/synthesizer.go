package voice

import (
	"context"
	"errors"
	"strings"

	"github.com/jonathan/interview-coach/internal/logging"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Defaults for question speech
const (
	DefaultTTSModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice    = "Kore"
	maxSpeechChars  = 2000
)

// contentGenerator is the subset of genai.Models used for speech
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// SynthesizerConfig selects the speech model and voice
type SynthesizerConfig struct {
	APIKey string
	Model  string
	Voice  string
}

// GeminiSynthesizer turns question text into WAV audio with Gemini TTS
type GeminiSynthesizer struct {
	models contentGenerator
	model  string
	voice  string
	logger *zap.Logger
}

// NewGeminiSynthesizer creates a synthesizer on the Gemini API backend
func NewGeminiSynthesizer(ctx context.Context, cfg SynthesizerConfig, logger *zap.Logger) (*GeminiSynthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &SynthesisError{Message: "failed to create genai client", Cause: err}
	}
	return newGeminiSynthesizer(client.Models, cfg, logger), nil
}

func newGeminiSynthesizer(models contentGenerator, cfg SynthesizerConfig, logger *zap.Logger) *GeminiSynthesizer {
	s := &GeminiSynthesizer{
		models: models,
		model:  cfg.Model,
		voice:  cfg.Voice,
		logger: logging.OrNop(logger),
	}
	if s.model == "" {
		s.model = DefaultTTSModel
	}
	if s.voice == "" {
		s.voice = DefaultVoice
	}
	return s
}

// Synthesize returns WAV audio for text
func (s *GeminiSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &SynthesisError{Message: "text is empty"}
	}
	if len(text) > maxSpeechChars {
		text = text[:maxSpeechChars]
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}

	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(text), cfg)
	if err != nil {
		return nil, &SynthesisError{Message: "generate speech", Cause: err}
	}

	pcm, mimeType := audioFromResponse(resp)
	if len(pcm) == 0 {
		return nil, &SynthesisError{Message: "response contained no audio"}
	}
	if strings.HasPrefix(mimeType, "audio/wav") {
		return pcm, nil
	}

	s.logger.Debug("question speech synthesized",
		zap.String(logging.FieldModel, s.model),
		zap.Int("pcm_bytes", len(pcm)))
	return WrapPCM(pcm, sampleRate(mimeType)), nil
}

func audioFromResponse(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil {
		return nil, ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}

// NoopSynthesizer is used when speech is disabled. It always fails so callers
// fall back to text only.
type NoopSynthesizer struct{}

// Synthesize implements interview.Synthesizer
func (NoopSynthesizer) Synthesize(context.Context, string) ([]byte, error) {
	return nil, &SynthesisError{Message: "speech synthesis is disabled"}
}
