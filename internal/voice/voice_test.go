package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type audioClient struct {
	response string
	err      error
	mimeType string
	audio    []byte
	tier     llm.ModelTier
}

func (a *audioClient) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	return "", errors.New("not used")
}

func (a *audioClient) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return "", errors.New("not used")
}

func (a *audioClient) GenerateJSONFromAudio(_ context.Context, _ string, audio []byte, mimeType string, tier llm.ModelTier) (string, error) {
	a.audio = audio
	a.mimeType = mimeType
	a.tier = tier
	return a.response, a.err
}

func (a *audioClient) GetModel(tier llm.ModelTier) string { return string(tier) }
func (a *audioClient) Close() error                       { return nil }

func TestGeminiTranscriber_Transcribe(t *testing.T) {
	client := &audioClient{response: `{"text": "  I would   start by profiling the service. ", "duration_seconds": 3.2}`}
	tr := NewGeminiTranscriber(client, nil)

	got, err := tr.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/webm;codecs=opus", "advanced")
	require.NoError(t, err)
	assert.Equal(t, "I would start by profiling the service.", got.Text)
	assert.Equal(t, 7, got.WordCount)
	assert.InDelta(t, 3.2, got.DurationSeconds, 0.001)
	assert.Equal(t, "audio/webm", client.mimeType)
	assert.Equal(t, llm.TierAdvanced, client.tier)
}

func TestGeminiTranscriber_EstimatesDuration(t *testing.T) {
	client := &audioClient{response: `{"text": "one two three four five"}`}
	got, err := NewGeminiTranscriber(client, nil).Transcribe(context.Background(), []byte{1}, "audio/wav", "lite")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.DurationSeconds, 0.001)
}

func TestGeminiTranscriber_Failures(t *testing.T) {
	tests := []struct {
		name     string
		client   *audioClient
		audio    []byte
		mimeType string
	}{
		{name: "empty audio", client: &audioClient{}, mimeType: "audio/webm"},
		{name: "unsupported type", client: &audioClient{}, audio: []byte{1}, mimeType: "video/mp4"},
		{name: "model error", client: &audioClient{err: errors.New("boom")}, audio: []byte{1}, mimeType: "audio/ogg"},
		{name: "no speech", client: &audioClient{response: `{"text": "   "}`}, audio: []byte{1}, mimeType: "audio/ogg"},
		{name: "bad json", client: &audioClient{response: `transcript: hello`}, audio: []byte{1}, mimeType: "audio/ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeminiTranscriber(tt.client, nil).Transcribe(context.Background(), tt.audio, tt.mimeType, "lite")
			var te *TranscriptionError
			require.ErrorAs(t, err, &te)
		})
	}
}

func TestNormalizeMIMEType(t *testing.T) {
	assert.Equal(t, "audio/wav", NormalizeMIMEType("audio/x-wav"))
	assert.Equal(t, "audio/mpeg", NormalizeMIMEType(" Audio/MP3 "))
	assert.Equal(t, "audio/webm", NormalizeMIMEType("audio/webm; codecs=opus"))
}

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	return f.resp, f.err
}

func audioResponse(mimeType string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}}},
		}},
	}
}

func TestGeminiSynthesizer_WrapsPCM(t *testing.T) {
	pcm := []byte{0, 1, 2, 3}
	models := &fakeModels{resp: audioResponse("audio/L16;codec=pcm;rate=16000", pcm)}
	s := newGeminiSynthesizer(models, SynthesizerConfig{Voice: "Puck"}, nil)

	wav, err := s.Synthesize(context.Background(), "Tell me about yourself.")
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, pcm, wav[44:])

	assert.Equal(t, DefaultTTSModel, models.model)
	require.NotNil(t, models.config.SpeechConfig)
	assert.Equal(t, "Puck", models.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	assert.Equal(t, []string{"AUDIO"}, models.config.ResponseModalities)
}

func TestGeminiSynthesizer_Failures(t *testing.T) {
	s := newGeminiSynthesizer(&fakeModels{err: errors.New("quota")}, SynthesizerConfig{}, nil)
	_, err := s.Synthesize(context.Background(), "hello there")
	var se *SynthesisError
	require.ErrorAs(t, err, &se)

	s = newGeminiSynthesizer(&fakeModels{resp: &genai.GenerateContentResponse{}}, SynthesizerConfig{}, nil)
	_, err = s.Synthesize(context.Background(), "hello there")
	require.ErrorAs(t, err, &se)

	_, err = s.Synthesize(context.Background(), "  ")
	require.ErrorAs(t, err, &se)
}

func TestNoopSynthesizer(t *testing.T) {
	_, err := NoopSynthesizer{}.Synthesize(context.Background(), "hi")
	assert.Error(t, err)
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 24000, sampleRate("audio/L16;codec=pcm;rate=24000"))
	assert.Equal(t, defaultSampleRate, sampleRate("audio/L16"))
	assert.Equal(t, defaultSampleRate, sampleRate("audio/L16;rate=abc"))
}
