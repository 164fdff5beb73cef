package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

func TestCacheKey(t *testing.T) {
	a := cacheKey("responses", Filter{CourseCode: "CS101", StaffID: "S1"})
	b := cacheKey("responses", Filter{CourseCode: "CS101", StaffID: "S2"})
	c := cacheKey("offerings", Filter{CourseCode: "CS101", StaffID: "S1"})

	if a == b || a == c {
		t.Errorf("cache keys collide: %s %s %s", a, b, c)
	}
	if a != cacheKey("responses", Filter{CourseCode: "CS101", StaffID: "S1"}) {
		t.Error("cacheKey() is not deterministic")
	}
	if len(a) != len("feedback:responses:")+32 {
		t.Errorf("cacheKey() = %q, unexpected length", a)
	}
}

func TestCachedStore_FallsThroughWhenRedisDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:59999",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	next := NewMemoryStore(feedback.ResponseRow{
		CourseCode: "CS101",
		StaffID:    "S1",
		Answers:    map[string]feedback.Ordinal{"q1": feedback.Fair},
	})
	s := NewCachedStore(next, client, time.Minute)

	rows, err := s.FetchResponses(context.Background(), Filter{StaffID: "S1"})
	if err != nil {
		t.Fatalf("FetchResponses() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Answers["q1"] != feedback.Fair {
		t.Errorf("FetchResponses() = %+v", rows)
	}

	keys, err := s.ListOfferings(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("ListOfferings() error = %v", err)
	}
	if len(keys) != 1 || keys[0].String() != "CS101/S1" {
		t.Errorf("ListOfferings() = %+v", keys)
	}
}
