package llm

import (
	"context"
	"sync"
)

// MockClient 测试用的 LLM 客户端，记录调用次数和最后一次请求。
type MockClient struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	calls    int
	lastMsgs []Message
}

func NewMockClient(reply string, err error) *MockClient {
	return &MockClient{Reply: reply, Err: err}
}

func (m *MockClient) Complete(_ context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastMsgs = append([]Message(nil), messages...)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Calls 调用次数
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastMessages 最后一次请求的消息
func (m *MockClient) LastMessages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.lastMsgs...)
}
