package visitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"avatar-talk/server/internal/model"
)

// DefaultCapacity 内存访客存储的默认上限，超出后淘汰最久未访问的访客。
const DefaultCapacity = 10000

// InMemoryStore 有容量上限的内存访客存储。
// 访客写入频率低，整个存储共用一把锁即可保证读改写原子。
type InMemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *model.VisitorState]
	now   func() time.Time
}

func NewInMemoryStore(capacity int, now func() time.Time) (*InMemoryStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	c, err := lru.New[string, *model.VisitorState](capacity)
	if err != nil {
		return nil, fmt.Errorf("create visitor lru: %w", err)
	}
	return &InMemoryStore{cache: c, now: now}, nil
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, id string) (*model.VisitorState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(id); ok {
		return v.Clone(), false, nil
	}
	v := NewState(id, s.now())
	s.cache.Add(id, v)
	return v.Clone(), true, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*model.VisitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return v.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*model.VisitorState) error) (*model.VisitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		v = NewState(id, s.now())
	}
	// 在副本上修改，fn 失败时不留下半成品。
	next := v.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.cache.Add(id, next)
	return next.Clone(), nil
}

func (s *InMemoryStore) Len(_ context.Context) (int, error) {
	return s.cache.Len(), nil
}

func (s *InMemoryStore) Snapshot(_ context.Context) ([]*model.VisitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.cache.Keys()
	out := make([]*model.VisitorState, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.cache.Peek(k); ok {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}
