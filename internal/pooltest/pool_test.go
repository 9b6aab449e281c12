package pooltest

import (
	"context"
	"testing"

	"github.com/dan-strohschein/pgwire-go/dispatcher"
	"github.com/dan-strohschein/pgwire-go/pgconn/mock"
)

func newMockDispatcher(ctx context.Context) (*dispatcher.Dispatcher, error) {
	d := dispatcher.New(mock.New(), dispatcher.DefaultOptions())
	d.Start()
	return d, nil
}

func TestPool_WarmAndReuse(t *testing.T) {
	p := New(newMockDispatcher, 2, 4)
	if err := p.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	stats := p.Stats()
	if got := stats.Total.Load(); got != 2 {
		t.Fatalf("expected 2 warmed dispatchers, got %d", got)
	}

	d1, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	stats = p.Stats()
	if got := stats.Active.Load(); got != 1 {
		t.Fatalf("expected 1 active, got %d", got)
	}

	p.Put(d1)
	stats = p.Stats()
	if got := stats.Active.Load(); got != 0 {
		t.Fatalf("expected 0 active after put, got %d", got)
	}
	if got := stats.Hits.Load(); got == 0 {
		t.Fatalf("expected at least one hit")
	}

	p.Close()
}

func TestPool_GrowsBeyondMinIdleUpToMaxOpen(t *testing.T) {
	p := New(newMockDispatcher, 0, 2)

	d1, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("get 1: %v", err)
	}
	d2, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("get 2: %v", err)
	}
	stats := p.Stats()
	if got := stats.Total.Load(); got != 2 {
		t.Fatalf("expected 2 total dispatchers, got %d", got)
	}
	if got := stats.Misses.Load(); got != 2 {
		t.Fatalf("expected 2 misses (both freshly created), got %d", got)
	}

	p.Put(d1)
	p.Put(d2)
	p.Close()
}

func TestPool_PutAfterCloseStopsDispatcher(t *testing.T) {
	p := New(newMockDispatcher, 1, 1)
	if err := p.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	d, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	p.Close()
	p.Put(d) // must not panic or deadlock; dispatcher is stopped instead of pooled
}
