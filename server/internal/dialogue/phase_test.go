package dialogue

import (
	"math/rand"
	"testing"

	"avatar-talk/server/internal/model"
)

// TestPhaseForDefaultThresholds 验证默认阈值 3/6 的阶梯划分。
func TestPhaseForDefaultThresholds(t *testing.T) {
	tests := []struct {
		count int
		want  Phase
	}{
		{0, PhaseOverview},
		{2, PhaseOverview},
		{3, PhaseTechnical},
		{5, PhaseTechnical},
		{6, PhasePersonal},
		{100, PhasePersonal},
	}
	for _, tt := range tests {
		if got := PhaseFor(tt.count); got != tt.want {
			t.Errorf("PhaseFor(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

// TestPhaseForMonotonicAndIdempotent 验证阶段对计数单调不减且重复调用结果一致。
func TestPhaseForMonotonicAndIdempotent(t *testing.T) {
	p, err := NewPhases([]int{2, 7}, DefaultPhaseOrder)
	if err != nil {
		t.Fatalf("new phases: %v", err)
	}
	prev := 0
	for n := 0; n < 50; n++ {
		got := p.PhaseFor(n)
		if got != p.PhaseFor(n) {
			t.Fatalf("PhaseFor(%d) not idempotent", n)
		}
		idx, _ := phaseIndex(DefaultPhaseOrder, got)
		if idx < prev {
			t.Fatalf("PhaseFor not monotonic at %d", n)
		}
		prev = idx
	}
	if p.PhaseFor(1) != PhaseOverview || p.PhaseFor(2) != PhaseTechnical || p.PhaseFor(7) != PhasePersonal {
		t.Fatalf("custom thresholds not applied")
	}
}

func TestNewPhasesRejectsBadThresholds(t *testing.T) {
	for _, th := range [][]int{{3}, {6, 3}, {3, 3}, {-1, 2}, {1, 2, 3}} {
		if _, err := NewPhases(th, DefaultPhaseOrder); err == nil {
			t.Errorf("expected error for thresholds %v", th)
		}
	}
}

// TestSuggestionsAllPhaseOneSelectedReturnsEmpty 验证第一阶段卡片全部选过后返回空列表。
func TestSuggestionsAllPhaseOneSelectedReturnsEmpty(t *testing.T) {
	tr := NewTracker(mustDefault(t), rand.New(rand.NewSource(1)))
	selected := []string{"挿し友禅って何？", "京友禅ってどんな着物？", "ふたばって誰？"}

	got := tr.SuggestionsFor(PhaseOverview, selected, "default", "ja")
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

// TestSuggestionsDedupCaseAndWhitespace 验证去重对大小写和空白不敏感。
func TestSuggestionsDedupCaseAndWhitespace(t *testing.T) {
	tr := NewTracker(mustDefault(t), rand.New(rand.NewSource(1)))

	got := tr.SuggestionsFor(PhaseOverview, []string{"  what is   SASHI-YUZEN? "}, "default", "en")
	if len(got) != 2 {
		t.Fatalf("expected 2 remaining chips, got %v", got)
	}
	for _, s := range got {
		if model.ChipKey(s) == model.ChipKey("What is Sashi-Yuzen?") {
			t.Fatalf("selected chip returned again: %v", got)
		}
	}
}

// TestSuggestionsSamplesThreeWhenMoreRemain 验证剩余超过 3 个时恰好返回 3 个且无重复、不含已选。
func TestSuggestionsSamplesThreeWhenMoreRemain(t *testing.T) {
	data := []byte(`
personas:
  - id: p
    languages:
      ja:
        phases:
          - phase: phase1_overview
            suggestions: [a, b, c, d, e, f]
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tr := NewTracker(c, rand.New(rand.NewSource(7)))

	for i := 0; i < 100; i++ {
		got := tr.SuggestionsFor(PhaseOverview, []string{"A", "b "}, "p", "ja")
		if len(got) != 3 {
			t.Fatalf("expected exactly 3, got %v", got)
		}
		seen := map[string]bool{}
		for _, s := range got {
			if s == "a" || s == "b" {
				t.Fatalf("selected chip returned: %v", got)
			}
			if seen[s] {
				t.Fatalf("duplicate chip: %v", got)
			}
			seen[s] = true
		}
	}
}

// TestSuggestionsSeededIsReproducible 验证相同种子得到相同结果。
func TestSuggestionsSeededIsReproducible(t *testing.T) {
	data := []byte(`
personas:
  - id: p
    languages:
      ja:
        phases:
          - phase: phase1_overview
            suggestions: [a, b, c, d, e]
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := NewTracker(c, rand.New(rand.NewSource(99))).SuggestionsFor(PhaseOverview, nil, "p", "ja")
	b := NewTracker(c, rand.New(rand.NewSource(99))).SuggestionsFor(PhaseOverview, nil, "p", "ja")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded results differ: %v vs %v", a, b)
		}
	}
}

func TestSuggestionsUnknownPhaseIsEmpty(t *testing.T) {
	tr := NewTracker(mustDefault(t), nil)
	if got := tr.SuggestionsFor(Phase("nope"), nil, "default", "ja"); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}
