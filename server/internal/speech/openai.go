package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"avatar-talk/server/internal/emotion"
)

const (
	OpenAIName = "openai_tts"
)

// OpenAIConfig OpenAI 语音配置，TTS 和 Whisper 共用。
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// STTModel 默认 whisper-1。
	STTModel string
}

func newOpenAIClient(cfg OpenAIConfig) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return openai.NewClient(opts...)
}

// OpenAISynthesizer tts-1，兜底所有语言。
type OpenAISynthesizer struct {
	client openai.Client
}

func NewOpenAISynthesizer(cfg OpenAIConfig) *OpenAISynthesizer {
	return &OpenAISynthesizer{client: newOpenAIClient(cfg)}
}

func (s *OpenAISynthesizer) Name() string { return OpenAIName }

func (s *OpenAISynthesizer) Supports(string) bool { return true }

// voiceFor 英语用 nova，其它语言用 alloy。
func voiceFor(language string) openai.AudioSpeechNewParamsVoice {
	if language == "en" {
		return openai.AudioSpeechNewParamsVoice("nova")
	}
	return openai.AudioSpeechNewParamsVoiceAlloy
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string, _ emotion.Label, language string) ([]byte, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          voiceFor(language),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio, nil
}

// WhisperRecognizer 语音转文字。
type WhisperRecognizer struct {
	client openai.Client
	model  string
}

func NewWhisperRecognizer(cfg OpenAIConfig) *WhisperRecognizer {
	model := cfg.STTModel
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &WhisperRecognizer{client: newOpenAIClient(cfg), model: model}
}

func (r *WhisperRecognizer) Recognize(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio.webm", "audio/webm"),
		Model: openai.AudioModel(r.model),
	}
	if language != "" {
		params.Language = openai.String(language)
	}
	tr, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return tr.Text, nil
}
