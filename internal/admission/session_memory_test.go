package admission

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryAttemptStore_BumpAndClear(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := store.Bump(ctx, "k1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("count = %d, want %d", got, want)
		}
	}

	if err := store.Clear(ctx, "k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Bump(ctx, "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("count after clear = %d, want 1", got)
	}
}

func TestMemoryAttemptStore_Expiry(t *testing.T) {
	store := NewMemoryAttemptStore(10 * time.Millisecond)
	ctx := context.Background()

	if _, err := store.Bump(ctx, "k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	got, err := store.Bump(ctx, "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("count after expiry = %d, want 1", got)
	}
}

func TestMemoryAttemptStore_Concurrent(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := store.Bump(ctx, "k1"); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := store.Bump(ctx, "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 101 {
		t.Errorf("final count = %d, want 101", got)
	}
}
