package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/singleflight"

	"avatar-talk/server/internal/cache"
	"avatar-talk/server/internal/emotion"
)

// Result 一次合成的输出。Audio 为 nil 表示没有音频（客户端只显示文字）。
type Result struct {
	Audio  *string
	Engine string
}

// Service 带缓存的合成服务。相同 文本+语言+情绪 的并发请求只会打一次上游。
type Service struct {
	chain  *Chain
	cache  *cache.AudioCache
	group  singleflight.Group
	logger *log.Logger
}

func NewService(chain *Chain, audioCache *cache.AudioCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if audioCache == nil {
		audioCache = cache.NewAudioCache(0)
	}
	return &Service{chain: chain, cache: audioCache, logger: logger}
}

// Providers 已启用的提供方名。
func (s *Service) Providers() []string {
	if s == nil || s.chain == nil {
		return nil
	}
	return s.chain.Names()
}

func (s *Service) CacheLen() int {
	if s == nil {
		return 0
	}
	return s.cache.Len()
}

// Speak 合成并返回 base64 音频。
func (s *Service) Speak(ctx context.Context, text, language string, e emotion.Label) (Result, error) {
	if s == nil || s.chain == nil {
		return Result{}, ErrNoProvider
	}
	engine := s.chain.EngineFor(language)
	if strings.TrimSpace(text) == "" {
		return Result{Engine: engine}, fmt.Errorf("empty text")
	}

	if a, ok := s.cache.Get(text, language, e); ok {
		return encode(a), nil
	}

	key := cache.AudioKey(text, language, e)
	v, err, shared := s.group.Do(key, func() (any, error) {
		data, name, err := s.chain.Synthesize(ctx, text, e, language)
		if err != nil {
			return nil, err
		}
		a := cache.Audio{Data: data, Engine: name}
		s.cache.Put(text, language, e, a)
		return a, nil
	})
	if err != nil {
		return Result{Engine: engine}, err
	}
	a := v.(cache.Audio)
	if shared {
		s.logger.Printf("[Speech] shared synthesis engine=%s bytes=%d", a.Engine, len(a.Data))
	}
	return encode(a), nil
}

func encode(a cache.Audio) Result {
	b64 := base64.StdEncoding.EncodeToString(a.Data)
	return Result{Audio: &b64, Engine: a.Engine}
}
