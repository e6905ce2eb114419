package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"avatar-talk/server/internal/config"
	"avatar-talk/server/internal/emotion"
)

// Reply 结构化输出：台词和情绪分开返回，不依赖模型在文本里写标记。
type Reply struct {
	Text    string `json:"text" jsonschema:"description=Spoken reply shown to the visitor"`
	Emotion string `json:"emotion" jsonschema:"description=Avatar emotion for this reply"`
}

// OpenAIClient OpenAI 客户端
type OpenAIClient struct {
	config     config.LLMProviderConfig
	client     openai.Client
	structured bool
	schema     map[string]any
}

// NewOpenAIClient 创建 OpenAI 客户端
func NewOpenAIClient(cfg config.LLMProviderConfig, structured bool) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIURL))
	}
	c := &OpenAIClient{
		config:     cfg,
		client:     openai.NewClient(opts...),
		structured: structured,
	}
	if structured {
		c.schema = ReplySchema()
	}
	return c
}

// Complete 完成文本生成（OpenAI）。
// 结构化模式下把 {text, emotion} 还原成 "text[EMOTION:x]"，后续解析与普通模式一致。
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.config.Model),
		Messages: toOpenAIMessages(messages),
	}
	if c.config.Temperature > 0 {
		params.Temperature = openai.Float(c.config.Temperature)
	}
	if c.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.config.MaxTokens))
	}
	if c.structured {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "avatar_reply",
					Schema: c.schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	if !c.structured {
		return content, nil
	}
	return renderReply(content)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func renderReply(content string) (string, error) {
	var r Reply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return "", fmt.Errorf("unmarshal structured reply: %w", err)
	}
	if strings.TrimSpace(r.Text) == "" {
		return "", ErrEmptyResponse
	}
	if r.Emotion == "" {
		return r.Text, nil
	}
	return r.Text + emotion.FormatTag(emotion.Label(strings.ToLower(r.Emotion))), nil
}

// ReplySchema 由 Reply 反射出 JSON Schema，并把 emotion 限定在词表内。
func ReplySchema() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: false,
	}
	raw, err := json.Marshal(reflector.Reflect(&Reply{}))
	if err != nil {
		panic(err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	schema["additionalProperties"] = false
	schema["required"] = []string{"text", "emotion"}

	if props, ok := schema["properties"].(map[string]any); ok {
		if e, ok := props["emotion"].(map[string]any); ok {
			enum := make([]string, 0, 8)
			for _, l := range emotion.Vocabulary() {
				enum = append(enum, string(l))
			}
			e["enum"] = enum
		}
	}
	return schema
}
