// Package speech 语音合成与识别。合成按语言走有序的提供方链，失败时依次降级。
package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"avatar-talk/server/internal/emotion"
)

var ErrNoProvider = errors.New("no speech provider for language")

// Synthesizer 单个 TTS 提供方。
type Synthesizer interface {
	Name() string
	Supports(language string) bool
	Synthesize(ctx context.Context, text string, e emotion.Label, language string) ([]byte, error)
}

// Recognizer 语音识别。
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, language string) (string, error)
}

// Chain 按顺序尝试支持该语言的提供方。
type Chain struct {
	providers []Synthesizer
	logger    *log.Logger
}

func NewChain(logger *log.Logger, providers ...Synthesizer) *Chain {
	if logger == nil {
		logger = log.Default()
	}
	var ps []Synthesizer
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Chain{providers: ps, logger: logger}
}

// Names 已启用的提供方。
func (c *Chain) Names() []string {
	out := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.Name())
	}
	return out
}

// Synthesize 返回音频和实际使用的提供方名。
func (c *Chain) Synthesize(ctx context.Context, text string, e emotion.Label, language string) ([]byte, string, error) {
	var errs []string
	tried := false
	for _, p := range c.providers {
		if !p.Supports(language) {
			continue
		}
		tried = true
		audio, err := p.Synthesize(ctx, text, e, language)
		if err == nil {
			return audio, p.Name(), nil
		}
		c.logger.Printf("[Speech] provider %s failed, falling back: %v", p.Name(), err)
		errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	if !tried {
		return nil, "", fmt.Errorf("%w: %s", ErrNoProvider, language)
	}
	return nil, "", fmt.Errorf("all speech providers failed: %s", strings.Join(errs, "; "))
}

// EngineFor 该语言首选的提供方名，用于回合结果中的 voice_engine 字段。
func (c *Chain) EngineFor(language string) string {
	for _, p := range c.providers {
		if p.Supports(language) {
			return p.Name()
		}
	}
	return ""
}
