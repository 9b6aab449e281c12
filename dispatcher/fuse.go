package dispatcher

import "sync"

// fuse is a write-once single-slot synchronisation primitive: multiple
// writers may race to Put, but only the first wins, and every reader
// observes the same value once it is set. It backs the transport-error
// cell shared by the Sender and Receiver loops.
type fuse struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value error
	set   bool
	done  chan struct{}
}

func newFuse() *fuse {
	f := &fuse{done: make(chan struct{})}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Put stores err if the fuse is still empty ("put-if-empty"); subsequent
// calls are no-ops. Returns true if this call was the one that set it.
func (f *fuse) Put(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set {
		return false
	}
	f.value = err
	f.set = true
	close(f.done)
	f.cond.Broadcast()
	return true
}

// Done returns a channel closed the moment the fuse is first set, suitable
// for use in a select alongside blocking queue sends.
func (f *fuse) Done() <-chan struct{} { return f.done }

// Get returns the current value and whether it has been set, without
// blocking ("read-or-wait" in its non-blocking form).
func (f *fuse) Get() (error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.set
}

// Wait blocks until the fuse is set and returns its value.
func (f *fuse) Wait() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.set {
		f.cond.Wait()
	}
	return f.value
}
