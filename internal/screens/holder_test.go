package screens

import (
	"testing"
	"time"
)

func recvSnapshot[T any](t *testing.T, ch <-chan Snapshot[T], within time.Duration) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot[T]{} // unreachable
	}
}

func recvNoSnapshot[T any](t *testing.T, ch <-chan Snapshot[T], within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func TestHolder_SubscribeGetsCurrentThenUpdates(t *testing.T) {
	h := NewHolder(0)
	ch, cancel := h.Subscribe()
	defer cancel()

	if snap := recvSnapshot(t, ch, time.Second); snap.Version != 0 || snap.State != 0 {
		t.Fatalf("expected initial snapshot v0, got %+v", snap)
	}

	h.Update(func(n int) int { return n + 1 })
	snap := recvSnapshot(t, ch, time.Second)
	if snap.Version != 1 || snap.State != 1 {
		t.Errorf("expected v1 state 1, got %+v", snap)
	}
	recvNoSnapshot(t, ch, 20*time.Millisecond)
}

func TestHolder_SlowReaderSeesLatest(t *testing.T) {
	h := NewHolder("a")
	ch, cancel := h.Subscribe()
	defer cancel()

	for _, s := range []string{"b", "c", "d"} {
		s := s
		h.Update(func(string) string { return s })
	}

	snap := recvSnapshot(t, ch, time.Second)
	if snap.State != "d" || snap.Version != 3 {
		t.Errorf("expected latest snapshot d@3, got %+v", snap)
	}
	recvNoSnapshot(t, ch, 20*time.Millisecond)
}

func TestHolder_UpdateIfSkipsUnchanged(t *testing.T) {
	h := NewHolder(5)
	snap, ok := h.UpdateIf(func(n int) (int, bool) { return n, false })
	if ok || snap.Version != 0 {
		t.Errorf("expected no change, got %+v ok=%v", snap, ok)
	}
	snap, ok = h.UpdateIf(func(n int) (int, bool) { return n * 2, true })
	if !ok || snap.State != 10 || snap.Version != 1 {
		t.Errorf("expected 10@1, got %+v ok=%v", snap, ok)
	}
}

func TestHolder_CancelAndClose(t *testing.T) {
	h := NewHolder(0)
	ch1, cancel1 := h.Subscribe()
	ch2, _ := h.Subscribe()
	recvSnapshot(t, ch1, time.Second)
	recvSnapshot(t, ch2, time.Second)

	cancel1()
	cancel1()
	if _, ok := <-ch1; ok {
		t.Error("expected cancelled channel to be closed")
	}

	h.Close()
	if _, ok := <-ch2; ok {
		t.Error("expected Close to close remaining subscriptions")
	}

	ch3, _ := h.Subscribe()
	if _, ok := <-ch3; ok {
		t.Error("expected subscription after Close to be closed")
	}
}
