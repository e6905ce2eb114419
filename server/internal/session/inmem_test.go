package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"avatar-talk/server/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
}

// TestGetOrCreateSeedsOnce 验证首次创建时执行 seed，之后返回同一条记录。
func TestGetOrCreateSeedsOnce(t *testing.T) {
	store := NewInMemoryStore(fixedNow)
	ctx := context.Background()

	s1, created, err := store.GetOrCreate(ctx, "s1", func(s *model.SessionState) { s.Language = "en" })
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created || s1.Language != "en" {
		t.Fatalf("expected new session with language en, got created=%v %+v", created, s1)
	}
	if s1.MentalState != model.DefaultMentalState() || s1.RelationshipStyle != "formal" {
		t.Fatalf("unexpected defaults: %+v", s1)
	}

	s2, created, err := store.GetOrCreate(ctx, "s1", func(s *model.SessionState) { s.Language = "ja" })
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if created || s2.Language != "en" {
		t.Fatalf("seed should not run twice, got created=%v language=%s", created, s2.Language)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	store := NewInMemoryStore(nil)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Update(context.Background(), "nope", func(*model.SessionState) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from update, got %v", err)
	}
}

// TestSnapshotsAreIsolated 验证修改返回的快照不会影响存储。
func TestSnapshotsAreIsolated(t *testing.T) {
	store := NewInMemoryStore(fixedNow)
	ctx := context.Background()

	if _, _, err := store.GetOrCreate(ctx, "s1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Update(ctx, "s1", func(s *model.SessionState) error {
		s.History = append(s.History, model.Turn{Role: "user", Content: "hi"})
		s.SelectedSuggestions.Add("a")
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	snap.History[0].Content = "mutated"
	snap.SelectedSuggestions[0] = "mutated"

	again, _ := store.Get(ctx, "s1")
	if again.History[0].Content != "hi" || again.SelectedSuggestions[0] != "a" {
		t.Fatalf("internal state leaked: %+v", again)
	}
}

// TestUpdateErrorIsReturned 验证 fn 返回错误时 Update 透传错误。
func TestUpdateErrorIsReturned(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()
	_, _, _ = store.GetOrCreate(ctx, "s1", nil)

	boom := errors.New("boom")
	if _, err := store.Update(ctx, "s1", func(*model.SessionState) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

// TestConcurrentUpdatesAreSerialized 验证同一会话的并发读改写不丢更新。
func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()
	_, _, _ = store.GetOrCreate(ctx, "s1", nil)
	_, _, _ = store.GetOrCreate(ctx, "s2", nil)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "s1"
			if i%2 == 1 {
				id = "s2"
			}
			_, err := store.Update(ctx, id, func(s *model.SessionState) error {
				s.InteractionCount++
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for _, id := range []string{"s1", "s2"} {
		s, _ := store.Get(ctx, id)
		if s.InteractionCount != 100 {
			t.Fatalf("%s: expected 100, got %d", id, s.InteractionCount)
		}
	}
}

// TestDeleteRunsFoldAndRejectsLaterUpdates 验证删除时执行 fold，之后的更新返回 ErrNotFound。
func TestDeleteRunsFoldAndRejectsLaterUpdates(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()
	_, _, _ = store.GetOrCreate(ctx, "s1", nil)
	_, _ = store.Update(ctx, "s1", func(s *model.SessionState) error {
		s.InteractionCount = 4
		return nil
	})

	var folded int
	final, err := store.Delete(ctx, "s1", func(s *model.SessionState) error {
		folded = s.InteractionCount
		return nil
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if folded != 4 || final.InteractionCount != 4 {
		t.Fatalf("fold saw %d, final %d", folded, final.InteractionCount)
	}

	if _, err := store.Update(ctx, "s1", func(*model.SessionState) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := store.Delete(ctx, "s1", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

// TestDeleteDuringUpdates 验证删除与并发更新交错时：fold 只执行一次，删除后的提交全部被拒绝。
func TestDeleteDuringUpdates(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		id := fmt.Sprintf("s%d", round)
		_, _, _ = store.GetOrCreate(ctx, id, nil)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			committed int
			folds     int
			foldCount int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, id, func(s *model.SessionState) error {
					s.InteractionCount++
					return nil
				})
				if err == nil {
					mu.Lock()
					committed++
					mu.Unlock()
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Delete(ctx, id, func(s *model.SessionState) error {
				mu.Lock()
				folds++
				foldCount = s.InteractionCount
				mu.Unlock()
				return nil
			})
		}()
		wg.Wait()

		if folds != 1 {
			t.Fatalf("expected exactly one fold, got %d", folds)
		}
		// 删除前提交的更新都被 fold 看到，删除后的提交都被拒绝。
		if foldCount != committed {
			t.Fatalf("fold saw %d, committed %d", foldCount, committed)
		}
	}
}
