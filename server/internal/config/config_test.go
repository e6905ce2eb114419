package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadMissingFileUsesDefaults 验证配置文件不存在时使用默认值且通过校验。
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "LLM_API_KEY", "ELEVENLABS_API_KEY", "REDIS_ADDR", "PORT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 5000 || cfg.Cache.AudioCapacity != 100 || cfg.Session.EmotionHistoryCap != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLMEnabled() || cfg.OpenAITTSEnabled() || cfg.ElevenLabsEnabled() {
		t.Fatalf("providers must be disabled without credentials")
	}
}

// TestLoadFileAndEnvOverrides 验证文件值覆盖默认值，环境变量覆盖文件值。
func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.yaml")
	content := `
server:
  port: 8080
llm:
  provider: openai
  structured_output: true
cache:
  response_ttl: 1h
speech:
  elevenlabs:
    enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ELEVENLABS_API_KEY", "el-test")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("PORT env should win, got %d", cfg.Server.Port)
	}
	if !cfg.LLM.StructuredOutput || cfg.Cache.ResponseTTL != time.Hour {
		t.Fatalf("file values not applied: %+v", cfg.LLM)
	}
	if cfg.Cache.AudioCapacity != 100 {
		t.Fatalf("defaults should survive partial file, got %d", cfg.Cache.AudioCapacity)
	}
	if !cfg.LLMEnabled() || !cfg.ElevenLabsEnabled() || !cfg.OpenAITTSEnabled() {
		t.Fatalf("expected providers enabled by env credentials")
	}
	if cfg.Visitor.Backend != "redis" || cfg.Visitor.Redis.Addr != "localhost:6379" {
		t.Fatalf("REDIS_ADDR should switch visitor backend: %+v", cfg.Visitor)
	}
}

func TestValidateRejectsStructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "nope" }},
		{"unknown backend", func(c *Config) { c.Visitor.Backend = "etcd" }},
		{"redis without addr", func(c *Config) { c.Visitor.Backend = "redis" }},
		{"negative capacity", func(c *Config) { c.Cache.AudioCapacity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
