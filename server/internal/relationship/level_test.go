package relationship

import "testing"

func TestLevelForBoundaries(t *testing.T) {
	tests := []struct {
		count int
		level int
		style Style
		name  string
	}{
		{0, 0, Formal, "-"},
		{1, 0, Formal, "-"},
		{2, 1, CasualPolite, "Level 1"},
		{5, 2, Friendly, "Level 2"},
		{7, 3, Close, "Level 3"},
		{8, 4, BestFriend, "MAX"},
		{1000, 4, BestFriend, "MAX"},
	}
	for _, tt := range tests {
		got := LevelFor(tt.count)
		if got.Level != tt.level || got.Style != tt.style || got.Name != tt.name {
			t.Errorf("LevelFor(%d) = %+v", tt.count, got)
		}
	}
}

// TestLevelForMonotonic 验证等级对计数单调不减。
func TestLevelForMonotonic(t *testing.T) {
	prev := -1
	for n := 0; n < 100; n++ {
		l := LevelFor(n).Level
		if l < prev {
			t.Fatalf("level decreased at %d", n)
		}
		prev = l
	}
}

func TestByLevelRoundTrip(t *testing.T) {
	ladder := DefaultLadder()
	for n := 0; n < 20; n++ {
		l := ladder.For(n)
		if got := ladder.ByLevel(l.Level); got != l {
			t.Fatalf("ByLevel(%d) = %+v, want %+v", l.Level, got, l)
		}
	}
	if ladder.ByLevel(MasterLevel).Style != Master {
		t.Fatalf("expected master style")
	}
}

func TestGreetingTier(t *testing.T) {
	cases := map[Style]string{
		Formal:       "formal",
		CasualPolite: "polite",
		Friendly:     "friendly",
		Close:        "casual",
		BestFriend:   "casual",
		Master:       "casual",
		Style("x"):   "formal",
	}
	for s, want := range cases {
		if got := GreetingTier(s); got != want {
			t.Errorf("GreetingTier(%s) = %s, want %s", s, got, want)
		}
	}
}

// TestAdjustStyle 验证日语语尾改写只作用于对应风格。
func TestAdjustStyle(t *testing.T) {
	in := "これは友禅です。きれいでしょう。"

	if got := AdjustStyle(in, "ja", Formal); got != in {
		t.Fatalf("formal should not change text, got %q", got)
	}
	if got := AdjustStyle(in, "ja", Friendly); got != "これは友禅だよ〜。きれいでしょう。" {
		t.Fatalf("friendly rewrite: %q", got)
	}
	if got := AdjustStyle(in, "ja", BestFriend); got != "これは友禅だよ。きれいだよね。" {
		t.Fatalf("casual rewrite: %q", got)
	}
	if got := AdjustStyle("It is nice.", "en", BestFriend); got != "It is nice." {
		t.Fatalf("english should be untouched: %q", got)
	}
}
