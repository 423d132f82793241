package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(rdb)
}

func TestGetSetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v1" {
		t.Fatalf("Get = %q, want v1", got)
	}
}

func TestSetNX(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "mark", "1", 60)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v, want true, nil", ok, err)
	}

	ok, err = s.SetNX(ctx, "mark", "2", 60)
	if err != nil || ok {
		t.Fatalf("second SetNX = %v, %v, want false, nil", ok, err)
	}
}

func TestSortedSetLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ZAdd(ctx, "pending", 100, "task-1"); err != nil {
		t.Fatalf("ZAdd: %v", err)
	}
	if err := s.ZAdd(ctx, "pending", 200, "task-2"); err != nil {
		t.Fatalf("ZAdd: %v", err)
	}

	due, err := s.ZRangeByScore(ctx, "pending", 0, 150)
	if err != nil {
		t.Fatalf("ZRangeByScore: %v", err)
	}
	if len(due) != 1 || due[0] != "task-1" {
		t.Fatalf("ZRangeByScore = %v, want [task-1]", due)
	}

	if err := s.ZRem(ctx, "pending", "task-1"); err != nil {
		t.Fatalf("ZRem: %v", err)
	}
	if err := s.ZAdd(ctx, "inflight", 300, "task-1"); err != nil {
		t.Fatalf("ZAdd inflight: %v", err)
	}

	remaining, err := s.ZRange(ctx, "pending", false, 0)
	if err != nil {
		t.Fatalf("ZRange: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != "task-2" {
		t.Fatalf("ZRange(pending) = %v, want [task-2]", remaining)
	}
}

func TestListPrependAndRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"first", "second", "third"} {
		if err := s.LPush(ctx, "log", v); err != nil {
			t.Fatalf("LPush(%s): %v", v, err)
		}
	}

	got, err := s.LRange(ctx, "log", 2)
	if err != nil {
		t.Fatalf("LRange: %v", err)
	}
	want := []string{"third", "second"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("LRange = %v, want %v", got, want)
	}
}

func TestScanPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "agent:a1", "x", 0)
	_ = s.Set(ctx, "agent:a2", "y", 0)
	_ = s.Set(ctx, "other:z", "z", 0)

	keys, err := s.ScanPrefix(ctx, "agent:")
	if err != nil {
		t.Fatalf("ScanPrefix: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("ScanPrefix returned %d keys, want 2 (%v)", len(keys), keys)
	}
}
