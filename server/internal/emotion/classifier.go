package emotion

import (
	"log"
	"math"
	"strings"
	"unicode/utf8"
)

// Weights 打分级联的可调参数，默认值来自线上调参。
type Weights struct {
	KeywordHit float64 `yaml:"keyword_hit"`
	PatternHit float64 `yaml:"pattern_hit"`
	ContextHit float64 `yaml:"context_hit"`

	// 短文本（rune 数 < ShortTextRunes）的最高分乘以 ShortTextBoost。
	ShortTextRunes int     `yaml:"short_text_runes"`
	ShortTextBoost float64 `yaml:"short_text_boost"`

	// 最高分低于 Floor 视为 neutral，置信度固定为 NeutralConfidence。
	Floor             float64 `yaml:"floor"`
	NeutralConfidence float64 `yaml:"neutral_confidence"`
	ConfidenceScale   float64 `yaml:"confidence_scale"`

	// 与第二名差距小于 AmbiguityGap 时置信度乘以 AmbiguityPenalty。
	AmbiguityGap     float64 `yaml:"ambiguity_gap"`
	AmbiguityPenalty float64 `yaml:"ambiguity_penalty"`

	// 认真提问判定：长度阈值与最少信号数。
	SeriousLength  int `yaml:"serious_length"`
	SeriousSignals int `yaml:"serious_signals"`
}

// DefaultWeights 返回默认调参。
func DefaultWeights() Weights {
	return Weights{
		KeywordHit:        2.0,
		PatternHit:        1.0,
		ContextHit:        0.5,
		ShortTextRunes:    10,
		ShortTextBoost:    1.2,
		Floor:             1.0,
		NeutralConfidence: 0.5,
		ConfidenceScale:   10.0,
		AmbiguityGap:      1.0,
		AmbiguityPenalty:  0.8,
		SeriousLength:     50,
		SeriousSignals:    2,
	}
}

// Classifier 基于关键词/正则的情绪分类器，无外部依赖，可并发使用。
type Classifier struct {
	weights  Weights
	lexicons []Lexicon
	logger   *log.Logger
}

func NewClassifier(weights Weights, lexicons []Lexicon, logger *log.Logger) *Classifier {
	if lexicons == nil {
		lexicons = DefaultLexicons()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{weights: weights, lexicons: lexicons, logger: logger}
}

// Score 单个候选情绪的累计分。
type Score struct {
	Emotion Label
	Value   float64
}

// Scores 计算每个候选情绪的分数，顺序与 lexicon 定义一致，末尾附 neutral=0。
func (c *Classifier) Scores(text string) []Score {
	normalized := NormalizeText(text)
	out := make([]Score, 0, len(c.lexicons)+1)

	for _, lex := range c.lexicons {
		var s float64
		for _, kw := range lex.Keywords {
			if strings.Contains(normalized, kw) {
				s += c.weights.KeywordHit * lex.Weight
			}
		}
		for _, p := range lex.Patterns {
			if p.MatchString(text) {
				s += c.weights.PatternHit * lex.Weight
			}
		}
		for _, phrase := range lex.Context {
			if strings.Contains(normalized, phrase) {
				s += c.weights.ContextHit
			}
		}
		out = append(out, Score{Emotion: lex.Emotion, Value: s})
	}
	out = append(out, Score{Emotion: Neutral})

	if utf8.RuneCountInString(text) < c.weights.ShortTextRunes {
		if i := leader(out); out[i].Value > 0 {
			out[i].Value *= c.weights.ShortTextBoost
		}
	}
	return out
}

// Classify 返回得分最高的情绪与置信度。
func (c *Classifier) Classify(text string) (Label, float64) {
	if text == "" {
		return Neutral, c.weights.NeutralConfidence
	}

	scores := c.Scores(text)
	i := leader(scores)
	top := scores[i]
	if top.Value < c.weights.Floor {
		return Neutral, c.weights.NeutralConfidence
	}

	confidence := math.Min(top.Value/c.weights.ConfidenceScale, 1.0)
	runnerUp := math.Inf(-1)
	for j, s := range scores {
		if j != i && s.Value > runnerUp {
			runnerUp = s.Value
		}
	}
	if top.Value-runnerUp < c.weights.AmbiguityGap {
		confidence *= c.weights.AmbiguityPenalty
	}
	return top.Emotion, confidence
}

// ClassifyForAvatar 驱动头像动作的分类，优先级：
// 不适当关键词 > 认真提问 > 打分级联 > 基础词表 > neutral。
func (c *Classifier) ClassifyForAvatar(text string) Label {
	if text == "" {
		return Neutral
	}
	lower := strings.ToLower(strings.TrimSpace(text))

	if containsAny(lower, dangerKeywords) {
		c.logger.Printf("[Emotion] dangerquestion detected: %s", preview(text))
		return DangerQuestion
	}

	if c.seriousSignals(text, lower) >= c.weights.SeriousSignals {
		return ResponseReady
	}

	if label, _ := c.Classify(text); label != Neutral {
		return label
	}

	for _, group := range basicWords {
		if containsAny(lower, group.words) {
			return group.label
		}
	}
	return Neutral
}

func (c *Classifier) seriousSignals(text, lower string) int {
	n := 0
	if containsAny(lower, questionMarkers) {
		n++
	}
	if utf8.RuneCountInString(text) > c.weights.SeriousLength {
		n++
	}
	if containsAny(lower, technicalTerms) {
		n++
	}
	return n
}

// leader 返回最高分的下标，同分取靠前者。
func leader(scores []Score) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i].Value > scores[best].Value {
			best = i
		}
	}
	return best
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func preview(s string) string {
	const max = 30
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
