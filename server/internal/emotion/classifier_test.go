package emotion

import (
	"math"
	"strings"
	"testing"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultWeights(), nil, nil)
}

// TestClassifyForAvatarDangerOverridesEverything 验证不适当关键词优先于其它所有规则。
// 场景：文本同时包含开心/惊讶关键词和认真提问信号，仍应返回 dangerquestion。
func TestClassifyForAvatarDangerOverridesEverything(t *testing.T) {
	c := newTestClassifier()
	inputs := []string{
		"セクシーな話をして",
		"嬉しい！最高！セクシー",
		"How does the SEXY technique work? explain the system in detail please",
		"すごい！びっくり！下着",
	}
	for _, in := range inputs {
		if got := c.ClassifyForAvatar(in); got != DangerQuestion {
			t.Errorf("ClassifyForAvatar(%q) = %s, want %s", in, got, DangerQuestion)
		}
	}
}

// TestClassifyForAvatarSeriousQuestion 验证三个信号中命中两个即返回 responseready。
func TestClassifyForAvatarSeriousQuestion(t *testing.T) {
	c := newTestClassifier()

	if got := c.ClassifyForAvatar("挿し友禅の技術を詳しく教えて"); got != ResponseReady {
		t.Fatalf("expected responseready, got %s", got)
	}
	// 只有疑问标记一个信号，不足以判定。
	if got := c.ClassifyForAvatar("元気？"); got == ResponseReady {
		t.Fatalf("single signal should not be responseready")
	}
}

// TestClassifyForAvatarFallsBackToBasicWords 验证打分级联无结果时使用基础词表。
func TestClassifyForAvatarFallsBackToBasicWords(t *testing.T) {
	c := newTestClassifier()

	if got := c.ClassifyForAvatar("wow"); got != Surprise {
		t.Fatalf("expected surprise for 'wow', got %s", got)
	}
	if got := c.ClassifyForAvatar("I feel lonely"); got != Sad {
		t.Fatalf("expected sad, got %s", got)
	}
	if got := c.ClassifyForAvatar("こんにちは"); got != Neutral {
		t.Fatalf("expected neutral, got %s", got)
	}
}

// TestClassifyScoring 验证关键词权重、短文本放大与歧义惩罚。
func TestClassifyScoring(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name       string
		text       string
		wantLabel  Label
		wantConfid float64
	}{
		// 2.0*1.3 = 2.6，短文本 *1.2 = 3.12，置信度 0.312
		{name: "single happy keyword", text: "嬉しい", wantLabel: Happy, wantConfid: 0.312},
		// happy 3.12 vs sad 2.4，差距 < 1.0，置信度 *0.8
		{name: "ambiguous", text: "悲しいけど嬉しい", wantLabel: Happy, wantConfid: 0.312 * 0.8},
		{name: "no signal", text: "こんにちは", wantLabel: Neutral, wantConfid: 0.5},
		{name: "empty", text: "", wantLabel: Neutral, wantConfid: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, conf := c.Classify(tt.text)
			if label != tt.wantLabel {
				t.Fatalf("label = %s, want %s", label, tt.wantLabel)
			}
			if math.Abs(conf-tt.wantConfid) > 1e-9 {
				t.Fatalf("confidence = %v, want %v", conf, tt.wantConfid)
			}
		})
	}
}

// TestClassifyBelowFloorIsNeutral 验证最高分低于下限时返回 neutral。
// 场景：只命中一个上下文短语（0.5 分）。
func TestClassifyBelowFloorIsNeutral(t *testing.T) {
	c := newTestClassifier()
	label, conf := c.Classify("明日の発表会は期待している人が多いと聞いています")
	if label != Neutral || conf != 0.5 {
		t.Fatalf("expected neutral/0.5, got %s/%v", label, conf)
	}
}

// TestClassifyCustomWeights 验证参数可调：提高下限后原本的 happy 变为 neutral。
func TestClassifyCustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.Floor = 100
	c := NewClassifier(w, nil, nil)
	if label, _ := c.Classify("嬉しい"); label != Neutral {
		t.Fatalf("expected neutral with raised floor, got %s", label)
	}
}

// TestClassifierLabelsAlwaysInVocabulary 验证任何输入的输出都在封闭词表内。
func TestClassifierLabelsAlwaysInVocabulary(t *testing.T) {
	c := newTestClassifier()
	inputs := []string{
		"", " ", "!!!", "？？？", "www", "T_T", "💢💢", "。。。", "ＡＢＣ１２３",
		"ええ！？本当に？", strings.Repeat("友禅", 40), "怒りと悲しみと驚きと喜び",
	}
	for _, in := range inputs {
		if l := c.ClassifyForAvatar(in); !Valid(l) {
			t.Errorf("ClassifyForAvatar(%q) = %q not in vocabulary", in, l)
		}
		if l, conf := c.Classify(in); !Valid(l) || conf < 0 || conf > 1 {
			t.Errorf("Classify(%q) = %q/%v out of range", in, l, conf)
		}
	}
}

// TestNormalizeText 验证符号去除、全角折叠与小写化。
func TestNormalizeText(t *testing.T) {
	got := NormalizeText("ＨＡＰＰＹ！１２３、嬉しい♪")
	if got != "happy123嬉しい" {
		t.Fatalf("NormalizeText = %q", got)
	}
}
