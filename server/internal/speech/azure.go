package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"avatar-talk/server/internal/emotion"
)

const (
	AzureName         = "azure_speech"
	defaultAzureVoice = "ja-JP-NanamiNeural"
)

// AzureConfig Azure Speech 配置。Endpoint 为空时按 region 拼接。
type AzureConfig struct {
	Key      string
	Region   string
	Voice    string
	Endpoint string
}

// Azure 通过 REST + SSML 合成，情绪映射到 express-as 风格。
type Azure struct {
	cfg        AzureConfig
	httpClient *http.Client
}

func NewAzure(cfg AzureConfig) *Azure {
	if cfg.Voice == "" {
		cfg.Voice = defaultAzureVoice
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	return &Azure{cfg: cfg, httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Azure) Name() string { return AzureName }

func (c *Azure) Supports(language string) bool { return language == "ja" }

// azureStyle 情绪 -> (style, styledegree)。
func azureStyle(e emotion.Label) (string, string) {
	switch e {
	case emotion.Happy, emotion.Start:
		return "cheerful", "2"
	case emotion.Surprise:
		return "excited", "2"
	case emotion.Sad:
		return "sad", "1.8"
	case emotion.Angry:
		return "angry", "1.8"
	case emotion.DangerQuestion:
		return "serious", "1.5"
	default:
		return "general", "1.5"
	}
}

// BuildSSML 生成 SSML，文本会做 XML 转义。
func (c *Azure) BuildSSML(text string, e emotion.Label) string {
	style, degree := azureStyle(e)
	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(text))

	return fmt.Sprintf(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="ja-JP">`+
		`<voice name="%s"><mstts:express-as style="%s" styledegree="%s"><prosody rate="+0%%" pitch="+5%%">%s</prosody></mstts:express-as></voice></speak>`,
		c.cfg.Voice, style, degree, escaped.String())
}

// Synthesize 返回 WAV（riff-24khz-16bit-mono-pcm）。
func (c *Azure) Synthesize(ctx context.Context, text string, e emotion.Label, _ string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader([]byte(c.BuildSSML(text, e))))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "riff-24khz-16bit-mono-pcm")
	req.Header.Set("User-Agent", "avatar-talk")

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
		return nil, fmt.Errorf("azure speech API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
