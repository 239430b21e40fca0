package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestMutualExclusionSameKey(t *testing.T) {
	km := New()

	var inCritical, maxInCritical int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("resource-1")
			defer km.Unlock("resource-1")

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Errorf("expected at most 1 holder of the same key, observed %d", maxInCritical)
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	km := New()

	km.Lock("resource-a")
	defer km.Unlock("resource-a")

	done := make(chan struct{})
	go func() {
		km.Lock("resource-b")
		km.Unlock("resource-b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestEntriesReleasedWhenIdle(t *testing.T) {
	km := New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("busy-key")
			km.Unlock("busy-key")
		}()
	}
	wg.Wait()

	km.mu.Lock()
	n := len(km.entries)
	km.mu.Unlock()

	if n != 0 {
		t.Errorf("expected idle entries to be dropped, %d remain", n)
	}
}
