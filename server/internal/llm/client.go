package llm

import (
	"context"
	"errors"
	"fmt"

	"avatar-talk/server/internal/config"
)

var ErrEmptyResponse = errors.New("llm returned empty response")

// Client LLM 客户端接口
type Client interface {
	// Complete 完成文本生成任务
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Message 消息结构
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// NewClient 创建 LLM 客户端。没有凭据时返回 (nil, nil)，调用方据此关闭 LLM 回答。
func NewClient(cfg *config.Config) (Client, error) {
	if !cfg.LLMEnabled() {
		return nil, nil
	}
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAIClient(cfg.LLM.OpenAI, cfg.LLM.StructuredOutput), nil
	case "anthropic":
		return NewAnthropicClient(cfg.LLM.Anthropic), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
