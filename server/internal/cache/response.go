// Package cache 有容量上限的回答缓存和音频缓存。
package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"avatar-talk/server/internal/emotion"
)

const (
	DefaultResponseCapacity = 1000
	DefaultResponseTTL      = 24 * time.Hour
	DefaultAudioCapacity    = 100
)

var questionPunct = strings.NewReplacer(
	"?", "", "？", "",
	"。", "", "、", "",
	"!", "", "！", "",
)

// NormalizeQuestion 缓存键用的问题归一化：小写、去掉问号感叹号和句读。
func NormalizeQuestion(q string) string {
	return strings.TrimSpace(questionPunct.Replace(strings.ToLower(q)))
}

// ResponseKey 归一化问题 + 语言 + 人设。
func ResponseKey(message, language, persona string) string {
	return NormalizeQuestion(message) + "\x00" + language + "\x00" + persona
}

// Response 缓存的回答。保存的是最终下发的文本，命中时原样返回。
type Response struct {
	Message string        `json:"message"`
	Emotion emotion.Label `json:"emotion"`
	Source  string        `json:"source"`
}

// ResponseCache 按问题缓存回答，容量和过期时间都有上限。
type ResponseCache struct {
	lru *expirable.LRU[string, Response]
}

func NewResponseCache(capacity int, ttl time.Duration) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultResponseCapacity
	}
	if ttl <= 0 {
		ttl = DefaultResponseTTL
	}
	return &ResponseCache{lru: expirable.NewLRU[string, Response](capacity, nil, ttl)}
}

func (c *ResponseCache) Get(message, language, persona string) (Response, bool) {
	return c.lru.Get(ResponseKey(message, language, persona))
}

func (c *ResponseCache) Put(message, language, persona string, r Response) {
	if NormalizeQuestion(message) == "" {
		return
	}
	c.lru.Add(ResponseKey(message, language, persona), r)
}

func (c *ResponseCache) Len() int {
	return c.lru.Len()
}
