package cache

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"avatar-talk/server/internal/emotion"
)

// AudioKey 文本 + 语言 + 情绪。
func AudioKey(text, language string, e emotion.Label) string {
	sum := sha256.Sum256([]byte(text + "\x00" + language + "\x00" + string(e)))
	return hex.EncodeToString(sum[:])
}

// Audio 合成结果。
type Audio struct {
	Data   []byte
	Engine string
}

// AudioCache 精确 LRU。
type AudioCache struct {
	lru *lru.Cache[string, Audio]
}

func NewAudioCache(capacity int) *AudioCache {
	if capacity <= 0 {
		capacity = DefaultAudioCapacity
	}
	c, err := lru.New[string, Audio](capacity)
	if err != nil {
		// 只有容量非正时才会失败，上面已经兜底。
		panic(err)
	}
	return &AudioCache{lru: c}
}

func (c *AudioCache) Get(text, language string, e emotion.Label) (Audio, bool) {
	return c.lru.Get(AudioKey(text, language, e))
}

func (c *AudioCache) Put(text, language string, e emotion.Label, a Audio) {
	c.lru.Add(AudioKey(text, language, e), a)
}

func (c *AudioCache) Len() int {
	return c.lru.Len()
}
