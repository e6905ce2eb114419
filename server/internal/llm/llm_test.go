package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"avatar-talk/server/internal/config"
	"avatar-talk/server/internal/model"
)

type staticPrompts string

func (s staticPrompts) SystemPrompt(_, _, _ string) string { return string(s) }

// TestResponderExtractsTag 验证回答中的情绪标记被取出且从文本中删除。
func TestResponderExtractsTag(t *testing.T) {
	mock := NewMockClient("挿し友禅は色を挿す工程です。[EMOTION:happy]", nil)
	r := NewResponder(mock, staticPrompts("persona"), 2, nil)

	ans, err := r.Respond(context.Background(), Request{
		Message: "挿し友禅って？",
		History: []model.Turn{
			{Role: "user", Content: "a"},
			{Role: "assistant", Content: "b"},
			{Role: "user", Content: "c"},
		},
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if ans.Text != "挿し友禅は色を挿す工程です。" || ans.RawEmotion != "happy" || !ans.Tagged {
		t.Fatalf("unexpected answer: %+v", ans)
	}

	msgs := mock.LastMessages()
	// system + 最近 2 条历史 + 本次消息
	if len(msgs) != 4 || msgs[0].Role != "system" || msgs[1].Content != "b" || msgs[3].Content != "挿し友禅って？" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestResponderErrors(t *testing.T) {
	if _, err := NewResponder(nil, nil, 0, nil).Respond(context.Background(), Request{Message: "hi"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	boom := errors.New("boom")
	if _, err := NewResponder(NewMockClient("", boom), nil, 0, nil).Respond(context.Background(), Request{Message: "hi"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}

	// 只有标记没有正文视为空回答。
	if _, err := NewResponder(NewMockClient("[EMOTION:happy]", nil), nil, 0, nil).Respond(context.Background(), Request{Message: "hi"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

// TestOpenAIClientStructuredReply 验证结构化输出被还原成带标记的文本，且请求里带了 json_schema。
func TestOpenAIClientStructuredReply(t *testing.T) {
	var gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		content, _ := json.Marshal(`{"text":"Hello!","emotion":"Happy"}`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + string(content) + `}}]}`))
	}))
	defer ts.Close()

	c := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "dummy", Model: "gpt-4o-mini"}, true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.Complete(ctx, []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if res != "Hello![EMOTION:happy]" {
		t.Fatalf("unexpected response content: %s", res)
	}
	if !strings.Contains(gotBody, "json_schema") || !strings.Contains(gotBody, "avatar_reply") {
		t.Fatalf("request missing response_format: %s", gotBody)
	}
}

func TestOpenAIClientPlainReply(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hi [EMOTION:sad]"}}]}`))
	}))
	defer ts.Close()

	c := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "dummy", Model: "gpt-4o-mini"}, false)
	res, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if res != "Hi [EMOTION:sad]" {
		t.Fatalf("unexpected response: %s", res)
	}
}

func TestReplySchemaRestrictsEmotion(t *testing.T) {
	schema := ReplySchema()
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", schema)
	}
	e, ok := props["emotion"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no emotion property")
	}
	enum, ok := e["enum"].([]string)
	if !ok || len(enum) != 8 {
		t.Fatalf("unexpected enum: %v", e["enum"])
	}
	if schema["additionalProperties"] != false {
		t.Fatalf("additionalProperties must be false")
	}
}

// TestAnthropicClientSeparatesSystem 验证 system 消息被放到顶层字段。
func TestAnthropicClientSeparatesSystem(t *testing.T) {
	var req anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"やあ[EMOTION:happy]"}]}`))
	}))
	defer ts.Close()

	c := NewAnthropicClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "k", Model: "claude"})
	res, err := c.Complete(context.Background(), []Message{{Role: "system", Content: "persona"}, {Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if res != "やあ[EMOTION:happy]" {
		t.Fatalf("unexpected response: %s", res)
	}
	if req.System != "persona" || len(req.Messages) != 1 || req.MaxTokens != 500 {
		t.Fatalf("unexpected request: %+v", req)
	}
}
