package dialogue

import (
	"strings"

	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/model"
)

// Matcher 判断用户输入是否命中某条问答，两个参数都已归一化。
type Matcher interface {
	Match(query, key string) bool
}

// MatcherFunc 函数适配器。
type MatcherFunc func(query, key string) bool

func (f MatcherFunc) Match(query, key string) bool { return f(query, key) }

// ContainmentMatcher 相等或任一方包含另一方。
// 短而泛的问题可能同时命中多条，由定义顺序决定。
var ContainmentMatcher = MatcherFunc(func(query, key string) bool {
	if query == "" || key == "" {
		return false
	}
	return query == key || strings.Contains(key, query) || strings.Contains(query, key)
})

// ExactMatcher 只接受完全相等。
var ExactMatcher = MatcherFunc(func(query, key string) bool {
	return query != "" && query == key
})

// NormalizeQuestion 小写、去首尾空白、去掉末尾的 ?!？！。
func NormalizeQuestion(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, "?!？！。")
	return strings.TrimSpace(s)
}

// Answer 脚本命中的结果。
type Answer struct {
	Text    string
	Emotion emotion.Label
	Media   *model.Media
	Phase   Phase
	Match   string
}

// Resolver 在人设的脚本表中查找问答。
type Resolver struct {
	catalog *Catalog
	matcher Matcher
}

func NewResolver(catalog *Catalog, matcher Matcher) *Resolver {
	if matcher == nil {
		matcher = ContainmentMatcher
	}
	return &Resolver{catalog: catalog, matcher: matcher}
}

// Resolve 先查当前阶段，未命中再按定义顺序查该人设的全部阶段。
func (r *Resolver) Resolve(message, persona string, phase Phase, language string) (Answer, bool) {
	script := r.catalog.Script(persona, language)
	if script == nil {
		return Answer{}, false
	}
	query := NormalizeQuestion(message)
	if query == "" {
		return Answer{}, false
	}

	if ps := script.phase(phase); ps != nil {
		if a, ok := r.search(query, ps); ok {
			return a, true
		}
	}
	for i := range script.Phases {
		if a, ok := r.search(query, &script.Phases[i]); ok {
			return a, true
		}
	}
	return Answer{}, false
}

func (r *Resolver) search(query string, ps *PhaseScript) (Answer, bool) {
	for _, e := range ps.Entries {
		if r.matcher.Match(query, NormalizeQuestion(e.Match)) {
			return Answer{
				Text:    e.Answer,
				Emotion: emotion.Normalize(string(e.Emotion)),
				Media:   e.Media,
				Phase:   ps.Phase,
				Match:   e.Match,
			}, true
		}
	}
	return Answer{}, false
}
