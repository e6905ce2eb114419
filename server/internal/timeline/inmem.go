package timeline

import (
	"context"
	"sync"

	"avatar-talk/server/internal/model"
)

// DefaultMaxEvents 每个会话保留的事件上限。
const DefaultMaxEvents = 200

type sessionLog struct {
	seq      int64
	events   []model.Event
	eventIDs map[string]int64
}

// InMemoryStore 是一个基于内存的 Timeline 存储实现。
// 每个会话只保留最近 maxEvents 条事件；EventID 去重表随事件一起淘汰。
type InMemoryStore struct {
	mu        sync.RWMutex
	logs      map[string]*sessionLog
	maxEvents int
}

func NewInMemoryStore(maxEvents int) *InMemoryStore {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &InMemoryStore{
		logs:      make(map[string]*sessionLog),
		maxEvents: maxEvents,
	}
}

// Append 追加事件到 timeline，并为该 session 分配单调递增 seq。
// 相同 EventID 会直接返回已分配的 seq（幂等）。
func (s *InMemoryStore) Append(_ context.Context, sessionID string, evt *model.Event) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.logs[sessionID]
	if l == nil {
		l = &sessionLog{eventIDs: make(map[string]int64)}
		s.logs[sessionID] = l
	}

	if evt.EventID != "" {
		if seq, exists := l.eventIDs[evt.EventID]; exists {
			return seq, false, nil
		}
	}

	l.seq++
	eventCopy := *evt
	eventCopy.Seq = l.seq
	eventCopy.SessionID = sessionID
	l.events = append(l.events, eventCopy)
	if evt.EventID != "" {
		l.eventIDs[evt.EventID] = l.seq
	}

	if over := len(l.events) - s.maxEvents; over > 0 {
		for _, old := range l.events[:over] {
			if old.EventID != "" {
				delete(l.eventIDs, old.EventID)
			}
		}
		l.events = append([]model.Event(nil), l.events[over:]...)
	}

	return l.seq, true, nil
}

// List 返回某个 session 的 timeline 事件（按 seq 顺序）。
// 返回切片副本，避免调用方修改内部数据。
func (s *InMemoryStore) List(_ context.Context, sessionID string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.logs[sessionID]
	if l == nil {
		return []model.Event{}, nil
	}
	out := make([]model.Event, len(l.events))
	copy(out, l.events)
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, sessionID)
	return nil
}
