package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/highscore/internal/curriculum"
	"github.com/p-n-ai/highscore/internal/generator"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_LoadMissingReturnsEmpty(t *testing.T) {
	s, _ := newRedisStore(t, time.Hour)

	state, err := s.Load(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state == nil || len(state.Results) != 0 || len(state.Failures) != 0 || state.InProgress {
		t.Errorf("Load() = %+v, want empty state", state)
	}
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	s, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	state := &generator.State{
		Results: []generator.Result{{
			Subject: "Math", Unit: "Geometry", Topic: "Area",
			Difficulty: generator.Hard, Content: "Find the area.",
		}},
		Failures: []generator.Failure{{
			Path:       curriculum.Path{Subject: "Math", Unit: "Algebra", Topic: "Quadratics"},
			Difficulty: generator.Easy,
			Error:      "groq API error (status 429): slow down",
			Reason:     generator.ReasonRateLimited,
		}},
		Rejected:   []string{"row 3: missing topic"},
		InProgress: true,
	}
	if err := s.Save(ctx, "abc", state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].Topic != "Area" || got.Results[0].Difficulty != generator.Hard {
		t.Errorf("Results = %+v, want saved result", got.Results)
	}
	if len(got.Failures) != 1 || got.Failures[0].Path.Topic != "Quadratics" || got.Failures[0].Reason != generator.ReasonRateLimited {
		t.Errorf("Failures = %+v, want saved failure", got.Failures)
	}
	if len(got.Rejected) != 1 || got.Rejected[0] != "row 3: missing topic" {
		t.Errorf("Rejected = %v, want saved rejection", got.Rejected)
	}
	if !got.InProgress {
		t.Error("InProgress = false, want true")
	}
}

func TestRedisStore_SaveSetsTTL(t *testing.T) {
	ttl := 30 * time.Minute
	s, mr := newRedisStore(t, ttl)

	if err := s.Save(context.Background(), "abc", &generator.State{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got := mr.TTL(sessionKey("abc")); got != ttl {
		t.Errorf("TTL = %v, want %v", got, ttl)
	}

	mr.FastForward(ttl + time.Second)
	state, err := s.Load(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state.InProgress || len(state.Results) != 0 {
		t.Errorf("Load() after expiry = %+v, want empty state", state)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := s.Save(ctx, "abc", &generator.State{InProgress: true}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !mr.Exists(sessionKey("abc")) {
		t.Fatal("session key not written")
	}

	if err := s.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if mr.Exists(sessionKey("abc")) {
		t.Error("session key still present after Delete")
	}
}

func TestRedisStore_RequiresID(t *testing.T) {
	s, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if _, err := s.Load(ctx, ""); err == nil {
		t.Error("Load(\"\") should fail")
	}
	if err := s.Save(ctx, "", &generator.State{}); err == nil {
		t.Error("Save(\"\") should fail")
	}
}

func TestRedisStore_LoadUnreachable(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	mr.Close()

	if _, err := s.Load(context.Background(), "abc"); err == nil {
		t.Error("Load() should fail when the cache is down")
	}
}
