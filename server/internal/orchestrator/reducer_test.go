package orchestrator

import (
	"testing"
	"time"

	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/mentalstate"
	"avatar-talk/server/internal/model"
	"avatar-talk/server/internal/relationship"
)

var t0 = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

// TestReduceTurn 验证一次回合的归约结果。
func TestReduceTurn(t *testing.T) {
	r := Reducer{HistoryCap: 5, Estimator: mentalstate.New()}
	s := &model.SessionState{SessionID: "s", Language: "ja", InteractionCount: 2, SelectedCount: 4}

	prev := r.ReduceTurn(s, TurnFacts{
		UserText:    "hi",
		Reply:       "hello",
		Emotion:     emotion.Happy,
		Language:    "en",
		ClientCount: 1,
		Selected:    []string{"A", "a ", "B"},
		VisitorID:   "v1",
		Style:       relationship.Friendly,
		Now:         t0,
	})
	if prev != "" {
		t.Fatalf("expected empty previous emotion, got %s", prev)
	}
	if s.InteractionCount != 3 || s.Language != "en" || s.VisitorID != "v1" {
		t.Fatalf("unexpected counters %+v", s)
	}
	if len(s.SelectedSuggestions) != 2 || s.SelectedCount != 4 {
		t.Fatalf("chips should dedupe and count should not drop: %v %d", s.SelectedSuggestions, s.SelectedCount)
	}
	if len(s.History) != 2 || s.History[0].Role != "user" || s.History[1].Content != "hello" {
		t.Fatalf("unexpected history %+v", s.History)
	}
	if s.CurrentEmotion != emotion.Happy || s.RelationshipStyle != "friendly" || len(s.EmotionHistory) != 1 {
		t.Fatalf("unexpected emotion state %+v", s)
	}
	if s.MentalState.Engagement != 1 {
		t.Fatalf("single happy record should be fully engaged, got %+v", s.MentalState)
	}
}

// TestReduceTurnInvalidEmotion 验证非法情绪在归约时折叠为 neutral。
func TestReduceTurnInvalidEmotion(t *testing.T) {
	r := Reducer{HistoryCap: 5, Estimator: mentalstate.New()}
	s := &model.SessionState{}
	r.ReduceTurn(s, TurnFacts{UserText: "x", Reply: "y", Emotion: "ecstatic", Now: t0})
	if s.CurrentEmotion != emotion.Neutral || s.EmotionHistory[0].Emotion != emotion.Neutral {
		t.Fatalf("expected neutral, got %s", s.CurrentEmotion)
	}
}

// TestReduceGreetingDoesNotCount 验证问候不计入对话数和历史。
func TestReduceGreetingDoesNotCount(t *testing.T) {
	r := Reducer{HistoryCap: 5, Estimator: mentalstate.New()}
	s := &model.SessionState{}
	r.ReduceGreeting(s, emotion.Start, relationship.Formal, t0)
	if !s.Greeted || s.InteractionCount != 0 || len(s.History) != 0 {
		t.Fatalf("greeting should not count: %+v", s)
	}
	if s.CurrentEmotion != emotion.Start || len(s.EmotionHistory) != 1 {
		t.Fatalf("greeting emotion should be recorded: %+v", s)
	}
}

func TestAppendEmotionRing(t *testing.T) {
	var h []model.EmotionRecord
	for i := 0; i < 12; i++ {
		h = AppendEmotion(h, model.EmotionRecord{Emotion: emotion.Happy, InteractionCount: i}, 10)
	}
	if len(h) != 10 || h[0].InteractionCount != 2 || h[9].InteractionCount != 11 {
		t.Fatalf("unexpected ring %+v", h)
	}
	if cap(h) > 11 {
		t.Fatalf("backing array keeps growing: cap=%d", cap(h))
	}
}

// TestEmotionStats 验证分布与转移矩阵。
func TestEmotionStats(t *testing.T) {
	s := NewEmotionStats()
	s.Record("", emotion.Happy)
	s.Record(emotion.Happy, emotion.Sad)
	s.Record(emotion.Sad, emotion.Happy)

	snap := s.Snapshot()
	if snap.Total != 3 || snap.Distribution["happy"] != 2 || snap.Distribution["sad"] != 1 {
		t.Fatalf("unexpected distribution %+v", snap)
	}
	if snap.Transitions["neutral"]["happy"] != 1 || snap.Transitions["happy"]["sad"] != 1 {
		t.Fatalf("unexpected transitions %+v", snap.Transitions)
	}
}
