package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Speech   SpeechConfig   `yaml:"speech"`
	STT      STTConfig      `yaml:"stt"`
	Session  SessionConfig  `yaml:"session"`
	Cache    CacheConfig    `yaml:"cache"`
	Visitor  VisitorConfig  `yaml:"visitor"`
	Dialogue DialogueConfig `yaml:"dialogue"`
	Survey   SurveyConfig   `yaml:"survey"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// EventQueueSize 每个连接的事件队列容量。
	EventQueueSize int `yaml:"event_queue_size"`
	// TurnTimeout 单个事件处理的超时（包含 LLM 与 TTS）。
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LLMConfig 回答生成用的 LLM
type LLMConfig struct {
	Provider  string            `yaml:"provider"` // "openai" or "anthropic"
	OpenAI    LLMProviderConfig `yaml:"openai"`
	Anthropic LLMProviderConfig `yaml:"anthropic"`
	// StructuredOutput 让 OpenAI 以 JSON Schema 返回 {text, emotion}。
	StructuredOutput bool `yaml:"structured_output"`
	// HistoryTurns 送给 LLM 的最近历史条数。
	HistoryTurns int `yaml:"history_turns"`
}

// LLMProviderConfig LLM 提供商配置
type LLMProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	APIURL      string  `yaml:"api_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type SpeechConfig struct {
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Azure      AzureConfig      `yaml:"azure"`
	OpenAITTS  OpenAITTSConfig  `yaml:"openai_tts"`
	// TermsFile 日语读音表（YAML map）。
	TermsFile string `yaml:"terms_file"`
}

type ElevenLabsConfig struct {
	Enabled                   bool   `yaml:"enabled"`
	APIKey                    string `yaml:"api_key"`
	VoiceID                   string `yaml:"voice_id"`
	ModelID                   string `yaml:"model_id"`
	PronunciationDictionaryID string `yaml:"pronunciation_dictionary_id"`
}

type AzureConfig struct {
	Enabled bool   `yaml:"enabled"`
	Key     string `yaml:"key"`
	Region  string `yaml:"region"`
	Voice   string `yaml:"voice"`
}

type OpenAITTSConfig struct {
	Enabled bool `yaml:"enabled"`
}

type STTConfig struct {
	Model string `yaml:"model"`
}

type SessionConfig struct {
	// EmotionHistoryCap 情绪日志环形缓冲的容量。
	EmotionHistoryCap int `yaml:"emotion_history_cap"`
	// EstimatorWindow 心理状态估计使用的最近情绪条数。
	EstimatorWindow int `yaml:"estimator_window"`
	// TimelineMaxEvents 每个会话保留的时间线事件数。
	TimelineMaxEvents int `yaml:"timeline_max_events"`
}

type CacheConfig struct {
	ResponseTTL      time.Duration `yaml:"response_ttl"`
	ResponseCapacity int           `yaml:"response_capacity"`
	AudioCapacity    int           `yaml:"audio_capacity"`
}

type VisitorConfig struct {
	Backend  string        `yaml:"backend"` // "memory" or "redis"
	Capacity int           `yaml:"capacity"`
	Redis    RedisConfig   `yaml:"redis"`
	TTL      time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type DialogueConfig struct {
	// DataFile 为空时使用内置的对话表。
	DataFile                string `yaml:"data_file"`
	DefaultPersona          string `yaml:"default_persona"`
	EnableUserTypeSelection bool   `yaml:"enable_user_type_selection"`
}

type SurveyConfig struct {
	DSN string `yaml:"dsn"`
	// AvatarName 写入问卷记录，区分不同展台。
	AvatarName string `yaml:"avatar_name"`
	// RewardImage 问卷完成后下发的奖励图片路径。
	RewardImage string `yaml:"reward_image"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default 默认配置，所有外部服务默认关闭，需要凭据才会启用。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			EventQueueSize: 100,
			TurnTimeout:    60 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "openai",
			OpenAI: LLMProviderConfig{
				APIURL:      "https://api.openai.com/v1",
				Model:       "gpt-4o-mini",
				Temperature: 0.7,
				MaxTokens:   500,
			},
			Anthropic: LLMProviderConfig{
				APIURL:      "https://api.anthropic.com/v1",
				Model:       "claude-3-5-haiku-latest",
				Temperature: 0.7,
				MaxTokens:   500,
			},
			HistoryTurns: 10,
		},
		Speech: SpeechConfig{
			Azure:     AzureConfig{Voice: "ja-JP-NanamiNeural"},
			OpenAITTS: OpenAITTSConfig{Enabled: true},
		},
		STT: STTConfig{Model: "whisper-1"},
		Session: SessionConfig{
			EmotionHistoryCap: 50,
			EstimatorWindow:   10,
			TimelineMaxEvents: 200,
		},
		Cache: CacheConfig{
			ResponseTTL:      24 * time.Hour,
			ResponseCapacity: 1000,
			AudioCapacity:    100,
		},
		Visitor: VisitorConfig{
			Backend:  "memory",
			Capacity: 10000,
		},
		Dialogue: DialogueConfig{DefaultPersona: "default"},
		Survey:   SurveyConfig{AvatarName: "Futaba"},
		Logging:  LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load 从文件加载配置。path 为空或文件不存在时使用默认值，仍然会应用环境变量。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		fmt.Printf("📋 Loading config from: %s\n", path)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			fmt.Printf("⚠️  Config file not found, using defaults\n")
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
			fmt.Printf("✅ Config parsed successfully (%d bytes)\n", len(data))
		}
	}

	cfg.applyEnv()

	fmt.Printf("\n📊 Configuration Summary:\n")
	fmt.Printf("   Server: %s\n", cfg.Server.Addr())
	fmt.Printf("   LLM: %s (structured=%v)\n", cfg.LLM.Provider, cfg.LLM.StructuredOutput)
	fmt.Printf("   Speech: elevenlabs=%v azure=%v openai_tts=%v\n", cfg.ElevenLabsEnabled(), cfg.AzureEnabled(), cfg.OpenAITTSEnabled())
	fmt.Printf("   Visitor backend: %s\n", cfg.Visitor.Backend)
	fmt.Printf("   Survey persistence: %v\n", cfg.Survey.DSN != "")
	fmt.Printf("\n")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv 从环境变量覆盖敏感信息
func (c *Config) applyEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		fmt.Printf("🔑 Using OPENAI_API_KEY from environment variable\n")
		c.LLM.OpenAI.APIKey = apiKey
	}
	if llmKey := os.Getenv("LLM_API_KEY"); llmKey != "" {
		fmt.Printf("🔑 Using LLM_API_KEY from environment variable\n")
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.Anthropic.APIKey = llmKey
		default:
			c.LLM.OpenAI.APIKey = llmKey
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.Anthropic.APIKey = key
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		fmt.Printf("🔑 Using ELEVENLABS_API_KEY from environment variable\n")
		c.Speech.ElevenLabs.APIKey = key
	}
	if voice := os.Getenv("ELEVENLABS_VOICE_ID"); voice != "" {
		c.Speech.ElevenLabs.VoiceID = voice
	}
	if v := os.Getenv("ELEVENLABS_ENABLED"); v != "" {
		c.Speech.ElevenLabs.Enabled, _ = strconv.ParseBool(v)
	}
	if key := os.Getenv("AZURE_SPEECH_KEY"); key != "" {
		fmt.Printf("🔑 Using AZURE_SPEECH_KEY from environment variable\n")
		c.Speech.Azure.Key = key
	}
	if region := os.Getenv("AZURE_SPEECH_REGION"); region != "" {
		c.Speech.Azure.Region = region
	}
	if v := os.Getenv("AZURE_SPEECH_ENABLED"); v != "" {
		c.Speech.Azure.Enabled, _ = strconv.ParseBool(v)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Visitor.Backend = "redis"
		c.Visitor.Redis.Addr = addr
	}
	if dsn := os.Getenv("SURVEY_DSN"); dsn != "" {
		c.Survey.DSN = dsn
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}

// LLMEnabled 有凭据才启用。
func (c *Config) LLMEnabled() bool {
	switch c.LLM.Provider {
	case "anthropic":
		return c.LLM.Anthropic.APIKey != ""
	default:
		return c.LLM.OpenAI.APIKey != ""
	}
}

func (c *Config) ElevenLabsEnabled() bool {
	return c.Speech.ElevenLabs.Enabled && c.Speech.ElevenLabs.APIKey != ""
}

func (c *Config) AzureEnabled() bool {
	return c.Speech.Azure.Enabled && c.Speech.Azure.Key != "" && c.Speech.Azure.Region != ""
}

// OpenAITTSEnabled TTS 与 Whisper 共用 OpenAI 的 key。
func (c *Config) OpenAITTSEnabled() bool {
	return c.Speech.OpenAITTS.Enabled && c.LLM.OpenAI.APIKey != ""
}

// Validate 只拒绝结构性错误；缺少凭据不算错误，对应功能自动关闭。
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}
	switch c.Visitor.Backend {
	case "memory":
	case "redis":
		if c.Visitor.Redis.Addr == "" {
			return fmt.Errorf("visitor redis backend requires redis.addr")
		}
	default:
		return fmt.Errorf("unsupported visitor backend: %s", c.Visitor.Backend)
	}
	if c.Visitor.Capacity < 0 || c.Cache.ResponseCapacity < 0 || c.Cache.AudioCapacity < 0 {
		return fmt.Errorf("capacities must not be negative")
	}
	if c.Session.EmotionHistoryCap < 0 || c.Session.EstimatorWindow < 0 || c.Session.TimelineMaxEvents < 0 {
		return fmt.Errorf("session limits must not be negative")
	}
	if c.Server.EventQueueSize < 0 {
		return fmt.Errorf("event queue size must not be negative")
	}
	return nil
}
