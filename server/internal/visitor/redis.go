package visitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"avatar-talk/server/internal/model"
)

const (
	defaultKeyPrefix = "avatar:visitor:"
	maxTxRetries     = 10
)

// RedisStore 每个访客一条 JSON，适合多实例共享访客记忆。
// Update 使用 WATCH 乐观事务，冲突时重试。
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger
}

// RedisConfig Redis 访客存储配置。
type RedisConfig struct {
	Prefix string
	// TTL 为 0 表示永不过期。
	TTL time.Duration
}

func NewRedisStore(client *redis.Client, cfg RedisConfig, logger *log.Logger) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		now:    time.Now,
		logger: logger,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// getter Client 和 Tx 共有的读接口。
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, id string) (*model.VisitorState, error) {
	data, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get visitor %s: %w", id, err)
	}
	var v model.VisitorState
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode visitor %s: %w", id, err)
	}
	return &v, nil
}

func (s *RedisStore) encode(v *model.VisitorState) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode visitor %s: %w", v.VisitorID, err)
	}
	return data, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string) (*model.VisitorState, bool, error) {
	v := NewState(id, s.now())
	data, err := s.encode(v)
	if err != nil {
		return nil, false, err
	}
	created, err := s.client.SetNX(ctx, s.key(id), data, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx visitor %s: %w", id, err)
	}
	if created {
		return v, true, nil
	}
	existing, err := s.load(ctx, s.client, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.VisitorState, error) {
	return s.load(ctx, s.client, id)
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*model.VisitorState) error) (*model.VisitorState, error) {
	key := s.key(id)
	var result *model.VisitorState

	txf := func(tx *redis.Tx) error {
		v, err := s.load(ctx, tx, id)
		if errors.Is(err, ErrNotFound) {
			v = NewState(id, s.now())
		} else if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
		data, err := s.encode(v)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			result = v
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Printf("[Visitor] update conflict visitor=%s retry=%d", id, i+1)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update visitor %s: too many conflicts", id)
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan visitors: %w", err)
		}
		out = append(out, keys...)
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *RedisStore) Snapshot(ctx context.Context) ([]*model.VisitorState, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.VisitorState, 0, len(keys))
	for _, k := range keys {
		v, err := s.load(ctx, s.client, k[len(s.prefix):])
		if errors.Is(err, ErrNotFound) {
			// 扫描期间过期。
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
