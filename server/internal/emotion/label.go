package emotion

import "strings"

// Label 是驱动头像表情的封闭枚举。
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Surprise Label = "surprise"

	// DangerQuestion 不适当输入，头像切到拒绝动作。
	DangerQuestion Label = "dangerquestion"
	// ResponseReady 认真提问，头像切到讲解动作。
	ResponseReady Label = "responseready"
	// Start 初次问候。
	Start Label = "start"
)

// vocabulary 固定词表，任何对外输出的情绪都必须属于这里。
var vocabulary = map[Label]struct{}{
	Neutral:        {},
	Happy:          {},
	Sad:            {},
	Angry:          {},
	Surprise:       {},
	DangerQuestion: {},
	ResponseReady:  {},
	Start:          {},
}

// aliases 历史别名，统一到词表内的标签。
var aliases = map[string]Label{
	"surprised":      Surprise,
	"neutraltalking": Neutral,
	"joy":            Happy,
}

// Vocabulary 返回全部合法标签（固定顺序）。
func Vocabulary() []Label {
	return []Label{Neutral, Happy, Sad, Angry, Surprise, DangerQuestion, ResponseReady, Start}
}

// Valid 判断标签是否在词表中（大小写敏感，调用方应先 Normalize）。
func Valid(l Label) bool {
	_, ok := vocabulary[l]
	return ok
}

// Parse 把外部字符串解析为标签；未知值返回 false。
func Parse(raw string) (Label, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Neutral, false
	}
	if l, ok := aliases[s]; ok {
		return l, true
	}
	l := Label(s)
	if Valid(l) {
		return l, true
	}
	return Neutral, false
}

// Normalize 把任意输入折叠到词表内，未知或缺失一律 neutral。
func Normalize(raw string) Label {
	l, _ := Parse(raw)
	return l
}

func (l Label) String() string { return string(l) }
