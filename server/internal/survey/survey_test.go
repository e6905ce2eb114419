package survey

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
)

type recordingPersister struct {
	mu      sync.Mutex
	records []*Record
	err     error
}

func (p *recordingPersister) Save(_ context.Context, rec *Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	rec.ID = "fixed"
	p.records = append(p.records, rec)
	return nil
}

func TestQuestions(t *testing.T) {
	for _, lang := range []string{"ja", "en", "fr"} {
		qs := Questions(lang)
		if len(qs) != 3 {
			t.Fatalf("%s: expected 3 questions, got %d", lang, len(qs))
		}
		for _, q := range qs {
			if q.Type != "rating" || len(q.Options) != 5 {
				t.Fatalf("%s: unexpected question %+v", lang, q)
			}
			if q.Options[0].Value != "5" || q.Options[4].Value != "1" {
				t.Fatalf("%s: options should run 5..1, got %+v", lang, q.Options)
			}
		}
	}
	if !strings.HasPrefix(Questions("en")[2].Options[2].Label, "3 - Neutral") {
		t.Fatalf("unexpected label %q", Questions("en")[2].Options[2].Label)
	}

	// 修改返回值不能影响下一次调用
	qs := Questions("ja")
	qs[0].Options[0].Label = "mutated"
	if Questions("ja")[0].Options[0].Label == "mutated" {
		t.Fatalf("Questions leaked internal state")
	}
}

// TestSubmitPersists 验证合法答案会连同会话信息一起保存。
func TestSubmitPersists(t *testing.T) {
	p := &recordingPersister{}
	svc := NewService(p, "Futaba", nil)

	rec, saved, err := svc.Submit(context.Background(),
		Answers{Q1: "5", Q2: " 4 ", Q3: "1"},
		Context{VisitorID: "v1", QuizScore: 2, ConversationCount: 7, Language: "ja"})
	if err != nil || !saved {
		t.Fatalf("submit: saved=%v err=%v", saved, err)
	}
	if rec.AvatarName != "Futaba" || rec.Q1 != 5 || rec.Q2 != 4 || rec.Q3 != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.QuizScore != 2 || rec.ConversationCount != 7 || rec.VisitorID != "v1" {
		t.Fatalf("meta not copied: %+v", rec)
	}
	if len(p.records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(p.records))
	}
}

func TestSubmitRejectsInvalidRatings(t *testing.T) {
	p := &recordingPersister{}
	svc := NewService(p, "", nil)

	for _, in := range []Answers{
		{Q1: "", Q2: "3", Q3: "3"},
		{Q1: "6", Q2: "3", Q3: "3"},
		{Q1: "3", Q2: "0", Q3: "3"},
		{Q1: "3", Q2: "3", Q3: "x"},
	} {
		if _, _, err := svc.Submit(context.Background(), in, Context{}); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("%+v: expected ErrInvalidRating, got %v", in, err)
		}
	}
	if len(p.records) != 0 {
		t.Fatalf("invalid answers should not be persisted")
	}
}

// TestSubmitPersistFailure 验证保存失败时返回 saved=false，记录仍然生成。
func TestSubmitPersistFailure(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(&recordingPersister{err: boom}, "Futaba", nil)

	rec, saved, err := svc.Submit(context.Background(), Answers{Q1: "3", Q2: "3", Q3: "3"}, Context{})
	if saved || !errors.Is(err, boom) {
		t.Fatalf("expected saved=false with db error, got saved=%v err=%v", saved, err)
	}
	if rec == nil || rec.VisitorID != "unknown" {
		t.Fatalf("record should still be built, got %+v", rec)
	}
}

func TestNopPersister(t *testing.T) {
	svc := NewService(nil, "", nil)
	if svc.Enabled() {
		t.Fatalf("nil persister should be disabled")
	}
	rec, saved, err := svc.Submit(context.Background(), Answers{Q1: "5", Q2: "5", Q3: "5"}, Context{VisitorID: "v"})
	if saved || !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got saved=%v err=%v", saved, err)
	}
	if rec.AvatarName != "Unknown" {
		t.Fatalf("expected default avatar name, got %q", rec.AvatarName)
	}
}

// TestGormPersisterPostgres 需要真实数据库，设置 SURVEY_TEST_DSN 才运行。
func TestGormPersisterPostgres(t *testing.T) {
	dsn := os.Getenv("SURVEY_TEST_DSN")
	if dsn == "" {
		t.Skip("SURVEY_TEST_DSN not set")
	}
	p, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	rec := &Record{AvatarName: "test", VisitorID: "v", Q1: 5, Q2: 4, Q3: 3, Language: "ja"}
	if err := p.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := p.db.Delete(&Record{}, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
