package service

import (
	"sync"
	"testing"
	"time"
)

func TestPathLocks_SerializesSamePath(t *testing.T) {
	locks := NewPathLocks()

	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("/tmp/a.pdf")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxActive)
	}
	if n := tracked(locks); n != 0 {
		t.Fatalf("expected lock table empty, has %d", n)
	}
}

func TestPathLocks_IndependentPaths(t *testing.T) {
	locks := NewPathLocks()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}

	unlockA()
	unlockA()
	if n := tracked(locks); n != 0 {
		t.Fatalf("expected lock table empty, has %d", n)
	}
}

func tracked(pl *PathLocks) int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.locks)
}
