// Package pooltest is a harness for driving many concurrent Dispatchers
// against pooled transports in benchmarks and tests. It is not a
// client-facing pooling API, so it lives under internal/ and is reachable
// only from this module's own _test.go and benchmark files.
package pooltest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dan-strohschein/pgwire-go/dispatcher"
)

// Stats counts what a dispatcher pool can actually report (dispatchers
// don't expose a ping, so there is no Timeouts/health-check split here).
type Stats struct {
	Active atomic.Int32
	Idle   atomic.Int32
	Total  atomic.Int32
	Hits   atomic.Int64
	Misses atomic.Int64
	Errors atomic.Int64
}

// Pool hands out started *dispatcher.Dispatcher values built by a factory,
// reusing idle ones up to maxOpen.
type Pool struct {
	factory func(ctx context.Context) (*dispatcher.Dispatcher, error)
	items   chan *dispatcher.Dispatcher
	maxOpen int
	minIdle int
	stats   Stats

	mu     sync.Mutex
	closed bool
}

// New builds a Pool. factory is invoked to create a new Dispatcher whenever
// none are idle and the pool is below maxOpen; it is the caller's
// responsibility to Start() the dispatcher before returning it, since only
// the caller knows which transport (real TCP, or pgconn/mock for a
// benchmark) to wire it to.
func New(factory func(ctx context.Context) (*dispatcher.Dispatcher, error), minIdle, maxOpen int) *Pool {
	if maxOpen < 1 {
		maxOpen = 1
	}
	if minIdle > maxOpen {
		minIdle = maxOpen
	}
	return &Pool{
		factory: factory,
		items:   make(chan *dispatcher.Dispatcher, maxOpen),
		maxOpen: maxOpen,
		minIdle: minIdle,
	}
}

// Warm populates the pool with minIdle dispatchers up front.
func (p *Pool) Warm(ctx context.Context) error {
	for i := 0; i < p.minIdle; i++ {
		d, err := p.factory(ctx)
		if err != nil {
			return fmt.Errorf("pooltest: warm: %w", err)
		}
		p.items <- d
		p.stats.Total.Add(1)
		p.stats.Idle.Add(1)
	}
	return nil
}

// Get acquires a Dispatcher, creating one if the pool has room and none are
// idle, or waiting for a release once it's at maxOpen.
func (p *Pool) Get(ctx context.Context) (*dispatcher.Dispatcher, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("pooltest: pool closed")
	}

	select {
	case d := <-p.items:
		p.stats.Idle.Add(-1)
		p.stats.Active.Add(1)
		p.stats.Hits.Add(1)
		return d, nil
	default:
	}

	if p.stats.Total.Load() < int32(p.maxOpen) {
		d, err := p.factory(ctx)
		if err != nil {
			p.stats.Errors.Add(1)
			return nil, err
		}
		p.stats.Total.Add(1)
		p.stats.Active.Add(1)
		p.stats.Misses.Add(1)
		return d, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d := <-p.items:
		p.stats.Idle.Add(-1)
		p.stats.Active.Add(1)
		p.stats.Hits.Add(1)
		return d, nil
	}
}

// Put returns d to the pool, or stops it if the pool is full or closed.
func (p *Pool) Put(d *dispatcher.Dispatcher) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	p.stats.Active.Add(-1)
	if closed {
		d.Stop()
		return
	}

	select {
	case p.items <- d:
		p.stats.Idle.Add(1)
	default:
		p.stats.Total.Add(-1)
		d.Stop()
	}
}

// Stats returns a point-in-time snapshot.
func (p *Pool) Stats() Stats {
	var s Stats
	s.Active.Store(p.stats.Active.Load())
	s.Idle.Store(p.stats.Idle.Load())
	s.Total.Store(p.stats.Total.Load())
	s.Hits.Store(p.stats.Hits.Load())
	s.Misses.Store(p.stats.Misses.Load())
	s.Errors.Store(p.stats.Errors.Load())
	return s
}

// Close stops every idle dispatcher and marks the pool closed; dispatchers
// currently checked out are stopped as they're Put back.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case d := <-p.items:
			d.Stop()
		default:
			return
		}
	}
}
