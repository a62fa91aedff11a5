package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var m KeyedMutex
	var active, maxActive int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "user-1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()

			now := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if now <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected one holder at a time, got %d", maxActive)
	}
	if len(m.locks) != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", len(m.locks))
	}
}

func TestKeyedMutex_LockHonoursContext(t *testing.T) {
	var m KeyedMutex
	unlock, err := m.Lock(context.Background(), "fx_1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "fx_1"); err == nil {
		t.Fatalf("expected context error while key is held")
	}

	if _, ok := m.TryLock("fx_1"); ok {
		t.Fatalf("expected TryLock to fail while key is held")
	}
	release, ok := m.TryLock("fx_2")
	if !ok {
		t.Fatalf("expected TryLock on free key to succeed")
	}
	release()
}
