package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"avatar-talk/server/internal/model"
)

const shardCount = 32

// InMemoryStore 分片 map + 每个 key 一把锁。
// 不同会话的回合互不阻塞，同一会话的读改写串行。
// 注意：重启即丢数据，多实例部署需要换成外部存储。
type InMemoryStore struct {
	shards [shardCount]shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	state   *model.SessionState
	deleted bool
}

func NewInMemoryStore(now func() time.Time) *InMemoryStore {
	if now == nil {
		now = time.Now
	}
	s := &InMemoryStore{now: now}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*entry)
	}
	return s
}

func (s *InMemoryStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.shards[h.Sum32()%shardCount]
}

// NewState 会话默认值。
func NewState(id string, now time.Time) *model.SessionState {
	return &model.SessionState{
		SessionID:           id,
		Language:            "ja",
		History:             []model.Turn{},
		EmotionHistory:      []model.EmotionRecord{},
		CurrentEmotion:      "neutral",
		MentalState:         model.DefaultMentalState(),
		RelationshipStyle:   "formal",
		SelectedSuggestions: model.ChipSet{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, id string, seed func(*model.SessionState)) (*model.SessionState, bool, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	if !ok {
		state := NewState(id, s.now())
		if seed != nil {
			seed(state)
		}
		e = &entry{state: state}
		sh.entries[id] = e
	}
	sh.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), !ok, nil
}

func (s *InMemoryStore) lookup(id string) (*entry, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[id]
	return e, ok
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*model.SessionState, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrNotFound
	}
	return e.state.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*model.SessionState) error) (*model.SessionState, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// 取到 entry 后、加锁前可能已被 Delete。
	if e.deleted {
		return nil, ErrNotFound
	}

	if err := fn(e.state); err != nil {
		return nil, err
	}
	e.state.UpdatedAt = s.now()
	return e.state.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string, fold func(*model.SessionState) error) (*model.SessionState, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	if ok {
		delete(sh.entries, id)
	}
	sh.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = true
	final := e.state.Clone()
	if fold != nil {
		if err := fold(final); err != nil {
			return final, err
		}
	}
	return final, nil
}

func (s *InMemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
