package dispatcher

import (
	"errors"
	"testing"
	"time"
)

func TestFusePutIsFirstWriterWins(t *testing.T) {
	f := newFuse()
	first := errors.New("first")
	second := errors.New("second")

	if !f.Put(first) {
		t.Fatal("expected first Put to win")
	}
	if f.Put(second) {
		t.Fatal("expected second Put to be a no-op")
	}

	got, set := f.Get()
	if !set || got != first {
		t.Fatalf("expected (%v, true), got (%v, %v)", first, got, set)
	}
}

func TestFuseGetBeforeSet(t *testing.T) {
	f := newFuse()
	got, set := f.Get()
	if set || got != nil {
		t.Fatalf("expected (nil, false), got (%v, %v)", got, set)
	}
}

func TestFuseWaitBlocksUntilSet(t *testing.T) {
	f := newFuse()
	done := make(chan error, 1)
	go func() { done <- f.Wait() }()

	select {
	case <-done:
		t.Fatal("Wait returned before Put")
	case <-time.After(20 * time.Millisecond):
	}

	want := errors.New("boom")
	f.Put(want)

	select {
	case got := <-done:
		if got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Put")
	}
}

func TestFuseDoneChannelClosesOnPut(t *testing.T) {
	f := newFuse()
	select {
	case <-f.Done():
		t.Fatal("Done channel should not be closed before Put")
	default:
	}
	f.Put(nil)
	select {
	case <-f.Done():
	default:
		t.Fatal("Done channel should be closed after Put")
	}
}
