package llm

import (
	"context"
	"errors"
	"fmt"
	"log"

	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/model"
)

var ErrNotConfigured = errors.New("llm not configured")

// PromptBuilder 生成人设系统提示。
type PromptBuilder interface {
	SystemPrompt(persona, language, style string) string
}

// Request 一次生成请求。History 不包含本次用户消息。
type Request struct {
	SessionID string
	Message   string
	Language  string
	Persona   string
	Style     string
	History   []model.Turn
}

// Answer 去掉情绪标记后的文本，RawEmotion 是标记原值（未校验）。
type Answer struct {
	Text       string
	RawEmotion string
	Tagged     bool
}

// Responder 把对话上下文组装成 LLM 请求并解析回复。
type Responder struct {
	client       Client
	prompts      PromptBuilder
	historyTurns int
	logger       *log.Logger
}

func NewResponder(client Client, prompts PromptBuilder, historyTurns int, logger *log.Logger) *Responder {
	if logger == nil {
		logger = log.Default()
	}
	if historyTurns < 0 {
		historyTurns = 0
	}
	return &Responder{client: client, prompts: prompts, historyTurns: historyTurns, logger: logger}
}

// Enabled 是否配置了 LLM。
func (r *Responder) Enabled() bool {
	return r != nil && r.client != nil
}

// Respond 生成回答。
func (r *Responder) Respond(ctx context.Context, req Request) (Answer, error) {
	if !r.Enabled() {
		return Answer{}, ErrNotConfigured
	}

	messages := r.buildMessages(req)
	raw, err := r.client.Complete(ctx, messages)
	if err != nil {
		return Answer{}, fmt.Errorf("complete: %w", err)
	}

	text, tag, found := emotion.ExtractTag(raw)
	if text == "" {
		return Answer{}, ErrEmptyResponse
	}
	if !found {
		r.logger.Printf("[LLM] session=%s reply without emotion tag", req.SessionID)
	}
	return Answer{Text: text, RawEmotion: tag, Tagged: found}, nil
}

func (r *Responder) buildMessages(req Request) []Message {
	var messages []Message
	if r.prompts != nil {
		if sys := r.prompts.SystemPrompt(req.Persona, req.Language, req.Style); sys != "" {
			messages = append(messages, Message{Role: "system", Content: sys})
		}
	}

	history := req.History
	if len(history) > r.historyTurns {
		history = history[len(history)-r.historyTurns:]
	}
	for _, t := range history {
		role := t.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, Message{Role: role, Content: t.Content})
	}
	return append(messages, Message{Role: "user", Content: req.Message})
}
