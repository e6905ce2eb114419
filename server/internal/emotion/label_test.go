package emotion

import "testing"

func TestNormalizeFoldsUnknownToNeutral(t *testing.T) {
	tests := map[string]Label{
		"happy":          Happy,
		"HAPPY":          Happy,
		" sad ":          Sad,
		"surprised":      Surprise,
		"surprise":       Surprise,
		"neutraltalking": Neutral,
		"dangerquestion": DangerQuestion,
		"excited":        Neutral,
		"":               Neutral,
		"[EMOTION:x]":    Neutral,
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseReportsValidity(t *testing.T) {
	if _, ok := Parse("angry"); !ok {
		t.Fatalf("angry should be valid")
	}
	if l, ok := Parse("furious"); ok || l != Neutral {
		t.Fatalf("furious should be rejected as neutral, got %s/%v", l, ok)
	}
}

func TestVocabularyIsClosed(t *testing.T) {
	for _, l := range Vocabulary() {
		if !Valid(l) {
			t.Fatalf("%s listed but not valid", l)
		}
	}
	if Valid("surprised") {
		t.Fatalf("alias must not be a vocabulary member")
	}
}

// TestExtractTag 验证内联情绪标记的提取与删除。
func TestExtractTag(t *testing.T) {
	clean, raw, found := ExtractTag("こんにちは！[EMOTION:happy]")
	if !found || raw != "happy" || clean != "こんにちは！" {
		t.Fatalf("unexpected extract: %q %q %v", clean, raw, found)
	}

	clean, raw, found = ExtractTag("タグなしの応答")
	if found || raw != "" || clean != "タグなしの応答" {
		t.Fatalf("unexpected extract without tag: %q %q %v", clean, raw, found)
	}

	// 多个标记时取第一个，全部删除。
	clean, raw, _ = ExtractTag("[EMOTION:Sad]前半 [EMOTION:happy]")
	if raw != "sad" || clean != "前半" {
		t.Fatalf("unexpected multi-tag extract: %q %q", clean, raw)
	}
}

func TestFormatTagRoundTrip(t *testing.T) {
	_, raw, found := ExtractTag("ok " + FormatTag(Surprise))
	if !found || Normalize(raw) != Surprise {
		t.Fatalf("round trip failed: %q", raw)
	}
}
