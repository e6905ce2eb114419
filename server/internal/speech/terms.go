package speech

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var punctRun = regexp.MustCompile(`[、。]{2,}`)

// Terms 专有名词读音表（汉字 -> 假名）。
type Terms struct {
	pairs []termPair
}

type termPair struct {
	from, to string
}

func NewTerms(m map[string]string) *Terms {
	t := &Terms{}
	for k, v := range m {
		if k == "" {
			continue
		}
		t.pairs = append(t.pairs, termPair{from: k, to: v})
	}
	// 长词优先，避免短词先替换掉长词的一部分。
	sort.Slice(t.pairs, func(i, j int) bool {
		li, lj := len([]rune(t.pairs[i].from)), len([]rune(t.pairs[j].from))
		if li != lj {
			return li > lj
		}
		return t.pairs[i].from < t.pairs[j].from
	})
	return t
}

// LoadTerms 从 YAML 文件读取读音表，路径为空时返回空表。
func LoadTerms(path string) (*Terms, error) {
	if path == "" {
		return NewTerms(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terms file: %w", err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse terms file: %w", err)
	}
	return NewTerms(m), nil
}

func (t *Terms) Len() int {
	if t == nil {
		return 0
	}
	return len(t.pairs)
}

// NormalizeJapanese 合成前的日语文本整理：套用读音表、省略号变句号、合并连续句读。
func (t *Terms) NormalizeJapanese(text string) string {
	if t != nil {
		for _, p := range t.pairs {
			text = strings.ReplaceAll(text, p.from, p.to)
		}
	}
	text = strings.ReplaceAll(text, "...", "。")
	text = strings.ReplaceAll(text, "…", "。")
	return punctRun.ReplaceAllString(text, "。")
}
