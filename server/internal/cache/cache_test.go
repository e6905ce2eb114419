package cache

import (
	"fmt"
	"testing"
	"time"

	"avatar-talk/server/internal/emotion"
)

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"挿し友禅って何？", "挿し友禅って何"},
		{" What is Yuzen?! ", "what is yuzen"},
		{"こんにちは、ふたば。", "こんにちはふたば"},
		{"？！", ""},
	}
	for _, tt := range tests {
		if got := NormalizeQuestion(tt.in); got != tt.want {
			t.Errorf("NormalizeQuestion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestResponseCacheKeyIgnoresPunctuationAndCase 验证等价问题命中同一缓存，语言或人设不同则不命中。
func TestResponseCacheKeyIgnoresPunctuationAndCase(t *testing.T) {
	c := NewResponseCache(10, time.Hour)
	c.Put("What is Yuzen?", "en", "default", Response{Message: "A dyeing technique.", Emotion: emotion.Happy})

	got, ok := c.Get("what is yuzen", "en", "default")
	if !ok || got.Message != "A dyeing technique." || got.Emotion != emotion.Happy {
		t.Fatalf("expected cache hit, got %+v ok=%v", got, ok)
	}
	if _, ok := c.Get("what is yuzen", "ja", "default"); ok {
		t.Fatalf("language must be part of the key")
	}
	if _, ok := c.Get("what is yuzen", "en", "student"); ok {
		t.Fatalf("persona must be part of the key")
	}
}

func TestResponseCacheSkipsEmptyQuestion(t *testing.T) {
	c := NewResponseCache(10, time.Hour)
	c.Put("？？", "ja", "default", Response{Message: "x"})
	if c.Len() != 0 {
		t.Fatalf("empty question should not be cached")
	}
}

// TestResponseCacheExpires 验证超过 TTL 后不再命中。
func TestResponseCacheExpires(t *testing.T) {
	c := NewResponseCache(10, 20*time.Millisecond)
	c.Put("hello", "en", "default", Response{Message: "hi"})
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("hello", "en", "default"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestResponseCacheBounded(t *testing.T) {
	c := NewResponseCache(5, time.Hour)
	for i := 0; i < 20; i++ {
		c.Put(fmt.Sprintf("q%d", i), "ja", "default", Response{Message: "a"})
	}
	if c.Len() != 5 {
		t.Fatalf("expected 5 entries, got %d", c.Len())
	}
}

// TestAudioCacheExactLRU 验证音频缓存淘汰的是最久未使用的条目，而不是最早插入的。
func TestAudioCacheExactLRU(t *testing.T) {
	c := NewAudioCache(2)
	c.Put("a", "ja", emotion.Happy, Audio{Data: []byte("A")})
	c.Put("b", "ja", emotion.Happy, Audio{Data: []byte("B")})
	if _, ok := c.Get("a", "ja", emotion.Happy); !ok {
		t.Fatalf("expected hit for a")
	}
	c.Put("c", "ja", emotion.Happy, Audio{Data: []byte("C")})

	if _, ok := c.Get("b", "ja", emotion.Happy); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := c.Get("a", "ja", emotion.Happy); !ok {
		t.Fatalf("a should survive as recently used")
	}
	if _, ok := c.Get("a", "ja", emotion.Sad); ok {
		t.Fatalf("emotion must be part of the key")
	}
}
