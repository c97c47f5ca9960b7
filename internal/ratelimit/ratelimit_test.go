package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWait_UnknownResourceProceedsImmediately(t *testing.T) {
	r := New(map[string]int{ResourceLLM: 60})

	start := time.Now()
	if err := r.Wait(context.Background(), "unknown"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unknown resource should not block, waited %v", elapsed)
	}
}

func TestWait_ZeroCeilingLeavesResourceUnlimited(t *testing.T) {
	r := New(map[string]int{ResourceFetch: 0})

	for i := 0; i < 100; i++ {
		if err := r.Wait(context.Background(), ResourceFetch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := r.Ceiling(ResourceFetch); got != 0 {
		t.Errorf("expected ceiling 0, got %d", got)
	}
}

func TestWait_SpacesCallsUnderCeiling(t *testing.T) {
	// 6000/min = one call every 10ms. The first call is free (burst 1); the
	// next four must take roughly 4 spacings.
	r := New(map[string]int{ResourceSearch: 6000})

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := r.Wait(context.Background(), ResourceSearch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 35*time.Millisecond {
		t.Errorf("5 calls at 6000/min should take at least ~40ms, took %v", elapsed)
	}
}

func TestWait_CancelledContext(t *testing.T) {
	// 1/min means the second call would wait nearly a minute.
	r := New(map[string]int{ResourceLLM: 1})

	if err := r.Wait(context.Background(), ResourceLLM); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx, ResourceLLM); err == nil {
		t.Fatal("expected context error for call exceeding the window")
	}
}

func TestCeiling(t *testing.T) {
	r := New(DefaultCeilings())

	if got := r.Ceiling(ResourceLLM); got != 50 {
		t.Errorf("llm ceiling = %d, want 50", got)
	}
	if got := r.Ceiling(ResourceSearch); got != 60 {
		t.Errorf("search ceiling = %d, want 60", got)
	}
	if got := r.Ceiling(ResourceFetch); got != 30 {
		t.Errorf("fetch ceiling = %d, want 30", got)
	}
}
