package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"avatar-talk/server/internal/emotion"
)

const (
	ElevenLabsName         = "elevenlabs"
	defaultElevenLabsURL   = "https://api.elevenlabs.io/v1"
	defaultElevenLabsVoice = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModel = "eleven_multilingual_v2"
)

// ElevenLabsConfig ElevenLabs 配置。
type ElevenLabsConfig struct {
	APIKey                    string
	VoiceID                   string
	ModelID                   string
	PronunciationDictionaryID string
	BaseURL                   string
}

// ElevenLabs 日语首选的 TTS。
type ElevenLabs struct {
	cfg        ElevenLabsConfig
	terms      *Terms
	httpClient *http.Client
}

func NewElevenLabs(cfg ElevenLabsConfig, terms *Terms) *ElevenLabs {
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultElevenLabsVoice
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultElevenLabsModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultElevenLabsURL
	}
	return &ElevenLabs{
		cfg:        cfg,
		terms:      terms,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *ElevenLabs) Name() string { return ElevenLabsName }

func (c *ElevenLabs) Supports(language string) bool { return language == "ja" }

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type elevenLabsDictLocator struct {
	DictionaryID string `json:"pronunciation_dictionary_id"`
	VersionID    string `json:"version_id"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
	Dictionaries  []elevenLabsDictLocator `json:"pronunciation_dictionary_locators,omitempty"`
}

// Synthesize 返回 MP3。ElevenLabs 没有情绪参数，情绪只参与缓存键。
func (c *ElevenLabs) Synthesize(ctx context.Context, text string, _ emotion.Label, _ string) ([]byte, error) {
	reqBody := elevenLabsRequest{
		Text:    c.terms.NormalizeJapanese(text),
		ModelID: c.cfg.ModelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0,
			UseSpeakerBoost: true,
		},
	}
	if c.cfg.PronunciationDictionaryID != "" {
		reqBody.Dictionaries = []elevenLabsDictLocator{{DictionaryID: c.cfg.PronunciationDictionaryID, VersionID: "latest"}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/text-to-speech/"+c.cfg.VoiceID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if len(respBody) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return respBody, nil
}
