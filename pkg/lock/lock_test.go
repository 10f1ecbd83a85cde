package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "booking-1")
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("Expected at most 1 holder at a time, got %d", maxInside)
	}
	if n := l.held(); n != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", n)
	}
}

func TestLocalLockerDifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	releaseA, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("Acquire a failed: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	releaseB, err := l.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("Expected key b to be free, got %v", err)
	}
	releaseB()
}

func TestLocalLockerHonorsContext(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	release, _ := l.Acquire(context.Background(), "k")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Acquire(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}

	release()
	release() // second call is a no-op

	if n := l.held(); n != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", n)
	}
}
