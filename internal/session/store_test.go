package session

import (
	"context"
	"testing"
	"time"

	"github.com/p-n-ai/highscore/internal/generator"
)

func TestMemoryStore_LoadMissingReturnsEmpty(t *testing.T) {
	s := NewMemoryStore(0)

	state, err := s.Load(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state == nil || len(state.Results) != 0 || state.InProgress {
		t.Errorf("Load() = %+v, want empty state", state)
	}
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	state := &generator.State{
		Results:    []generator.Result{{Topic: "Area", Content: "q"}},
		InProgress: true,
	}
	if err := s.Save(ctx, "abc", state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].Topic != "Area" || !got.InProgress {
		t.Errorf("Load() = %+v, want saved state", got)
	}
}

func TestMemoryStore_IsolatesCopies(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	state := &generator.State{Results: []generator.Result{{Topic: "A"}}}
	s.Save(ctx, "abc", state)

	state.Results[0].Topic = "mutated after save"
	got, _ := s.Load(ctx, "abc")
	if got.Results[0].Topic != "A" {
		t.Errorf("stored state changed through caller's pointer: %q", got.Results[0].Topic)
	}

	got.Results[0].Topic = "mutated after load"
	again, _ := s.Load(ctx, "abc")
	if again.Results[0].Topic != "A" {
		t.Errorf("stored state changed through loaded pointer: %q", again.Results[0].Topic)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Save(ctx, "abc", &generator.State{Results: []generator.Result{{Topic: "A"}}})
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	now = now.Add(2 * time.Minute)
	got, _ := s.Load(ctx, "abc")
	if len(got.Results) != 0 {
		t.Errorf("Load() after expiry = %+v, want empty state", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", s.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	s.Save(ctx, "abc", &generator.State{Results: []generator.Result{{Topic: "A"}}})
	if err := s.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ := s.Load(ctx, "abc")
	if len(got.Results) != 0 {
		t.Error("Load() after Delete should return empty state")
	}
}

func TestMemoryStore_RequiresID(t *testing.T) {
	s := NewMemoryStore(0)
	if _, err := s.Load(context.Background(), ""); err == nil {
		t.Error("Load(\"\") should return error")
	}
	if err := s.Save(context.Background(), "", &generator.State{}); err == nil {
		t.Error("Save(\"\") should return error")
	}
}

func TestSessionIDs(t *testing.T) {
	id := NewID()
	if !ValidID(id) {
		t.Errorf("ValidID(%q) = false for a generated id", id)
	}
	if NewID() == id {
		t.Error("NewID() returned the same id twice")
	}
	for _, bad := range []string{"", "not-a-uuid", "../../etc/passwd"} {
		if ValidID(bad) {
			t.Errorf("ValidID(%q) = true, want false", bad)
		}
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey("abc"); got != "hsq:session:abc" {
		t.Errorf("sessionKey() = %q, want hsq:session:abc", got)
	}
}
