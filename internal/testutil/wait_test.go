package testutil

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	var calls atomic.Int32

	ok := Eventually(time.Second, func() bool {
		return calls.Add(1) >= 3
	})
	if !ok {
		t.Fatal("Eventually() = false, want true once the condition holds")
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("condition evaluated %d times, want 3", got)
	}
}

func TestEventually_TimesOut(t *testing.T) {
	start := time.Now()

	if Eventually(20*time.Millisecond, func() bool { return false }) {
		t.Fatal("Eventually() = true for a condition that never holds")
	}

	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Eventually() returned after %s, before its timeout", elapsed)
	}
}

func TestWaitClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)

	WaitClosed(t, ch, time.Second, "closed channel")
}
