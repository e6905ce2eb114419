package emotion

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// NormalizeText 打分前的文本归一化：
// 去掉符号（保留字母/数字/空白/假名/汉字），全角英数折叠为半角，转小写。
func NormalizeText(text string) string {
	folded := width.Fold.String(text)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

func keepRune(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x309F: // 平假名
		return true
	case r >= 0x30A0 && r <= 0x30FF: // 片假名
		return true
	case r >= 0x4E00 && r <= 0x9FAF: // CJK 统一汉字
		return true
	case r == '_':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r)
}
