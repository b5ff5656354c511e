package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	l := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("classroom:bca_2a")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if l.Len() != 0 {
		t.Fatalf("locks left behind: %d", l.Len())
	}
}

func TestLockOverlappingKeySetsDoNotDeadlock(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := l.Lock("user:a", "user:b")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := l.Lock("user:b", "user:a")
			unlock()
		}()
	}
	wg.Wait()
}

func TestUnlockIsIdempotent(t *testing.T) {
	l := New()
	unlock := l.Lock("k", "k")
	unlock()
	unlock()

	again := l.Lock("k")
	again()
	if l.Len() != 0 {
		t.Fatalf("locks left behind: %d", l.Len())
	}
}
