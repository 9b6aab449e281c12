// Package mock provides a scripted in-memory Conn for exercising the
// dispatcher without a real socket: a byte-stream duplex rather than a
// framed request/response transport.
package mock

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// Conn is an in-memory pgconn.Conn. Bytes written by the dispatcher's
// Sender loop land in WrittenBytes(); bytes queued via Push are handed out
// to the dispatcher's Receiver loop by Read.
type Conn struct {
	mu      sync.Mutex
	cond    *sync.Cond
	inbox   bytes.Buffer
	written bytes.Buffer
	closed  bool

	readErr  error
	writeErr error
}

// New returns a ready-to-use mock connection.
func New() *Conn {
	c := &Conn{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Push enqueues bytes that a subsequent Read will return, simulating
// backend traffic arriving on the wire.
func (c *Conn) Push(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox.Write(b)
	c.cond.Broadcast()
}

// FailReadWith arms Read to fail on its next call, simulating a transport
// error observed by the Receiver loop.
func (c *Conn) FailReadWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
	c.cond.Broadcast()
}

// FailWriteWith arms Write to fail on its next call.
func (c *Conn) FailWriteWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// WrittenBytes returns everything written so far, e.g. for asserting the
// dispatcher encoded and flushed the expected StartupMessage bytes.
func (c *Conn) WrittenBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, c.written.Len())
	copy(out, c.written.Bytes())
	return out
}

func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.inbox.Len() == 0 && c.readErr == nil && !c.closed {
		c.cond.Wait()
	}
	if c.readErr != nil {
		return 0, c.readErr
	}
	if c.closed && c.inbox.Len() == 0 {
		return 0, errors.New("mock: connection closed")
	}
	return c.inbox.Read(p)
}

func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.closed {
		return 0, errors.New("mock: connection closed")
	}
	return c.written.Write(p)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cond.Broadcast()
	return nil
}

func (c *Conn) SetDeadline(t time.Time) error { return nil }
