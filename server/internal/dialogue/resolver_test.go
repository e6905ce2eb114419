package dialogue

import (
	"strings"
	"testing"

	"avatar-talk/server/internal/emotion"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadDefault()
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}
	return c
}

// TestResolveSashiYuzenScenario 验证默认人设第一阶段的脚本命中。
// 场景：输入「挿し友禅って何」，应返回非空文本、情绪 happy，且文本不含标记。
func TestResolveSashiYuzenScenario(t *testing.T) {
	r := NewResolver(mustDefault(t), nil)

	a, ok := r.Resolve("挿し友禅って何", "default", PhaseOverview, "ja")
	if !ok {
		t.Fatalf("expected scripted hit")
	}
	if a.Text == "" {
		t.Fatalf("expected non-empty answer text")
	}
	if a.Emotion != emotion.Happy {
		t.Fatalf("expected happy, got %s", a.Emotion)
	}
	if strings.Contains(a.Text, "[EMOTION") {
		t.Fatalf("marker leaked into text: %q", a.Text)
	}
}

// TestResolveNormalizesTrailingPunctuation 验证大小写与末尾标点不影响匹配。
func TestResolveNormalizesTrailingPunctuation(t *testing.T) {
	r := NewResolver(mustDefault(t), nil)

	for _, in := range []string{"挿し友禅って何？", "挿し友禅って何?!", "  挿し友禅って何。 ", "what is sashi-yuzen?"} {
		lang := "ja"
		if strings.HasPrefix(in, "what") {
			lang = "en"
		}
		if _, ok := r.Resolve(in, "default", PhaseOverview, lang); !ok {
			t.Errorf("expected hit for %q", in)
		}
	}
}

// TestResolveBidirectionalContainment 验证双向包含匹配。
// 场景：输入比问题长（问题是输入的子串），输入比问题短（输入是问题的子串）。
func TestResolveBidirectionalContainment(t *testing.T) {
	r := NewResolver(mustDefault(t), nil)

	a, ok := r.Resolve("ねえ、挿し友禅って何ですか", "default", PhaseOverview, "ja")
	if !ok || a.Match != "挿し友禅って何" {
		t.Fatalf("expected key-in-query hit, got %+v ok=%v", a, ok)
	}

	a, ok = r.Resolve("ぼかし", "default", PhaseTechnical, "ja")
	if !ok || a.Match != "ぼかしってどんな技法" {
		t.Fatalf("expected query-in-key hit, got %+v ok=%v", a, ok)
	}
}

// TestResolveFallsBackToAllPhases 验证当前阶段未命中时搜索全部阶段。
func TestResolveFallsBackToAllPhases(t *testing.T) {
	r := NewResolver(mustDefault(t), nil)

	a, ok := r.Resolve("職人として一番苦労したことは？", "default", PhaseOverview, "ja")
	if !ok {
		t.Fatalf("expected fallback hit")
	}
	if a.Phase != PhasePersonal || a.Emotion != emotion.Sad {
		t.Fatalf("unexpected fallback answer: %+v", a)
	}
}

// TestResolveFirstDefinitionWins 验证多条命中时按定义顺序取第一条。
// 场景：输入「何」同时是多个问题的子串。
func TestResolveFirstDefinitionWins(t *testing.T) {
	r := NewResolver(mustDefault(t), nil)

	a, ok := r.Resolve("何", "default", PhaseOverview, "ja")
	if !ok {
		t.Fatalf("expected hit")
	}
	if a.Match != "挿し友禅って何" {
		t.Fatalf("expected first defined entry, got %q", a.Match)
	}
}

// TestResolveNoMatch 验证无关输入与空输入都返回未命中。
func TestResolveNoMatch(t *testing.T) {
	r := NewResolver(mustDefault(t), nil)

	for _, in := range []string{"今日の天気は", "", "？？"} {
		if a, ok := r.Resolve(in, "default", PhaseOverview, "ja"); ok {
			t.Errorf("unexpected hit for %q: %+v", in, a)
		}
	}
}

// TestResolveExactMatcherStrategy 验证匹配策略可替换。
func TestResolveExactMatcherStrategy(t *testing.T) {
	r := NewResolver(mustDefault(t), ExactMatcher)

	if _, ok := r.Resolve("ぼかし", "default", PhaseTechnical, "ja"); ok {
		t.Fatalf("exact matcher should reject partial query")
	}
	if _, ok := r.Resolve("ぼかしってどんな技法？", "default", PhaseTechnical, "ja"); !ok {
		t.Fatalf("exact matcher should accept full question")
	}
}

// TestParseMigratesInlineMarker 验证旧格式答案里的标记被拆成结构化字段。
func TestParseMigratesInlineMarker(t *testing.T) {
	data := []byte(`
personas:
  - id: p
    languages:
      ja:
        phases:
          - phase: phase1_overview
            entries:
              - match: テスト
                answer: "こんにちは [EMOTION:surprised]"
              - match: 不明
                answer: "タグなし"
              - match: 壊れ
                answer: "x [EMOTION:excited]"
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := NewResolver(c, nil)

	a, _ := r.Resolve("テスト", "p", PhaseOverview, "ja")
	if a.Text != "こんにちは" || a.Emotion != emotion.Surprise {
		t.Fatalf("unexpected migrated entry: %+v", a)
	}
	a, _ = r.Resolve("不明", "p", PhaseOverview, "ja")
	if a.Emotion != emotion.Neutral {
		t.Fatalf("missing marker should be neutral, got %s", a.Emotion)
	}
	a, _ = r.Resolve("壊れ", "p", PhaseOverview, "ja")
	if a.Emotion != emotion.Neutral {
		t.Fatalf("unknown marker should be neutral, got %s", a.Emotion)
	}
}

// TestParseRejectsDoubleMarker 验证一个答案里出现两个标记时拒绝加载。
func TestParseRejectsDoubleMarker(t *testing.T) {
	data := []byte(`
personas:
  - id: p
    languages:
      ja:
        phases:
          - phase: phase1_overview
            entries:
              - match: a
                answer: "[EMOTION:happy] x [EMOTION:sad]"
`)
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected error for two markers")
	}
}

func TestMediaForExactQuestion(t *testing.T) {
	c := mustDefault(t)

	if m := c.MediaFor("business", "ja", "リサーチセンターはどういう施設？"); m == nil || m.Link == nil {
		t.Fatalf("expected media with link, got %+v", m)
	}
	if m := c.MediaFor("business", "ja", "リサーチセンター"); m != nil {
		t.Fatalf("media requires exact question, got %+v", m)
	}
}
