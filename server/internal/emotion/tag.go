package emotion

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`\[EMOTION:(\w+)\]`)

// ExtractTag 从 LLM 文本中取出第一个 [EMOTION:xxx] 标记并删掉所有标记。
// 返回的 raw 是标记里的原始值（未校验），found 表示是否存在标记。
func ExtractTag(text string) (clean string, raw string, found bool) {
	m := tagPattern.FindStringSubmatch(text)
	if m == nil {
		return strings.TrimSpace(text), "", false
	}
	clean = strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
	return clean, strings.ToLower(m[1]), true
}

// FormatTag 生成内联标记，给结构化输出回写成文本时使用。
func FormatTag(l Label) string {
	return "[EMOTION:" + string(l) + "]"
}
