package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLockerExcludesAndReleases(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	locker := NewLocker(newClient(mr), 100*time.Millisecond)

	unlock, err := locker.Lock(ctx, "attempt:a1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("quiz:lock:attempt:a1") {
		t.Fatalf("expected lock key")
	}

	if _, err := locker.Lock(ctx, "attempt:a1"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
	other, err := locker.Lock(ctx, "attempt:a2")
	if err != nil {
		t.Fatalf("lock other key: %v", err)
	}
	other()

	unlock()
	if mr.Exists("quiz:lock:attempt:a1") {
		t.Fatalf("expected lock key released")
	}
	again, err := locker.Lock(ctx, "attempt:a1")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Second)
	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// Simulate expiry followed by another holder taking the key.
	if err := mr.Set("quiz:lock:k", "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}
	unlock()
	if got, _ := mr.Get("quiz:lock:k"); got != "someone-else" {
		t.Fatalf("expected foreign lock kept, got %q", got)
	}
}

func TestLockerHonoursContext(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Minute)
	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
