// Package dispatcher implements the connection core: five cooperating
// loops (Serializer, Sender, Receiver, Slicer, Interpreter) wired by
// channels, exposing PerformRequest and Stop to callers. This is the
// pipelined, full-duplex heart of the client library; everything else
// (the Client facade, result-set accessors, settings) is built on top of
// it.
package dispatcher

import (
	"context"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/google/uuid"

	"github.com/dan-strohschein/pgwire-go/pgconn"
	"github.com/dan-strohschein/pgwire-go/pgerrors"
	"github.com/dan-strohschein/pgwire-go/pglog"
	"github.com/dan-strohschein/pgwire-go/wire"
)

// Options configures a Dispatcher, narrowed to the concerns that belong at
// the transport/dispatcher layer rather than a higher-level client facade
// (retry, pooling and schema options stay out).
type Options struct {
	// ReadChunkSize is the buffer size used by the Receiver loop.
	// Default: 8192.
	ReadChunkSize int

	// OutgoingQueueDepth bounds outgoingBytesQ; once full, the Serializer
	// loop blocks, and that block propagates back through
	// serializerMsgQ into PerformRequest -- the designed backpressure
	// path. Default: 64.
	OutgoingQueueDepth int

	// ResultProcessorQueueDepth bounds resultProcessorQ. Default: 256.
	ResultProcessorQueueDepth int

	// IncomingQueueDepth bounds incomingBytesQ and incomingMsgQ. Default: 64.
	IncomingQueueDepth int

	Logger   pglog.Logger
	LogLevel string

	TLS pgconn.TLSOptions

	Observer *Observer

	// OnStarted, if set, is called once all five loops are running.
	OnStarted func(*Dispatcher)

	// OnStopped, if set, is called once Stop has finished draining the
	// loops and closing the connection. err is Stop's return value.
	OnStopped func(*Dispatcher, error)
}

// DefaultOptions returns Options with the defaults documented above.
func DefaultOptions() Options {
	return Options{
		ReadChunkSize:             8192,
		OutgoingQueueDepth:        64,
		ResultProcessorQueueDepth: 256,
		IncomingQueueDepth:        64,
		LogLevel:                  "INFO",
	}
}

func (o *Options) fillDefaults() {
	d := DefaultOptions()
	if o.ReadChunkSize == 0 {
		o.ReadChunkSize = d.ReadChunkSize
	}
	if o.OutgoingQueueDepth == 0 {
		o.OutgoingQueueDepth = d.OutgoingQueueDepth
	}
	if o.ResultProcessorQueueDepth == 0 {
		o.ResultProcessorQueueDepth = d.ResultProcessorQueueDepth
	}
	if o.IncomingQueueDepth == 0 {
		o.IncomingQueueDepth = d.IncomingQueueDepth
	}
	if o.Logger == nil {
		o.Logger = pglog.New(o.LogLevel, nil)
	}
}

type serializeMessage struct {
	traceID string
	encode  func() []byte
}

// Dispatcher owns one connection's five loops and the queues between them.
type Dispatcher struct {
	id   string
	conn pgconn.Conn
	opts Options
	log  pglog.Logger

	serializerMsgQ  chan serializeMessage
	outgoingBytesQ  chan []byte
	incomingBytesQ  chan []byte
	incomingMsgQ    chan wire.Message
	resultProcessorQ chan *resultProcessor

	transport *fuse
	lifecycle *lifecycleManager

	// submitMu preserves the relative order of the two enqueues in
	// PerformRequest across concurrent callers; see the comment at the
	// enqueue there.
	submitMu sync.Mutex

	wg sync.WaitGroup

	unaffiliatedMu sync.Mutex
	unaffiliated   []func(interface{})
}

// New wires (but does not start) a Dispatcher around conn.
func New(conn pgconn.Conn, opts Options) *Dispatcher {
	opts.fillDefaults()
	d := &Dispatcher{
		id:               uuid.NewString(),
		conn:             conn,
		opts:             opts,
		log:              opts.Logger.WithFields(pglog.String("connID", "")),
		serializerMsgQ:   make(chan serializeMessage, opts.ResultProcessorQueueDepth),
		outgoingBytesQ:   make(chan []byte, opts.OutgoingQueueDepth),
		incomingBytesQ:   make(chan []byte, opts.IncomingQueueDepth),
		incomingMsgQ:     make(chan wire.Message, opts.IncomingQueueDepth),
		resultProcessorQ: make(chan *resultProcessor, opts.ResultProcessorQueueDepth),
		transport:        newFuse(),
		lifecycle:        newLifecycleManager(),
	}
	d.log = opts.Logger.WithFields(pglog.String("connID", d.id))
	return d
}

// ID returns the UUID minted for this dispatcher's connection, used to tag
// log lines and traces, scoped to the whole connection rather than one
// command.
func (d *Dispatcher) ID() string { return d.id }

// Log returns the dispatcher's connection-scoped logger, for callers built
// on top of it (the Client facade) that want the same trace correlation.
func (d *Dispatcher) Log() pglog.Logger { return d.log }

// Start launches the five loops. It must be called exactly once.
func (d *Dispatcher) Start() {
	d.log.Info("dispatcher starting")
	d.wg.Add(5)
	go d.runSerializer()
	go d.runSender()
	go d.runReceiver()
	go d.runSlicer()
	go d.runInterpreter()
	if d.opts.OnStarted != nil {
		d.opts.OnStarted(d)
	}
}

// OnUnaffiliated registers a sink for notifications and idle-state backend
// errors that arrive with no request awaiting them. Multiple sinks may be
// registered; each receives every unaffiliated message, in arrival order.
func (d *Dispatcher) OnUnaffiliated(fn func(interface{})) {
	d.unaffiliatedMu.Lock()
	defer d.unaffiliatedMu.Unlock()
	d.unaffiliated = append(d.unaffiliated, fn)
}

func (d *Dispatcher) routeUnaffiliated(msg interface{}) {
	d.unaffiliatedMu.Lock()
	sinks := make([]func(interface{}), len(d.unaffiliated))
	copy(sinks, d.unaffiliated)
	d.unaffiliatedMu.Unlock()
	for _, s := range sinks {
		s(msg)
	}
	d.opts.Observer.unaffiliated(msg)
}

// PerformRequest is the caller-facing entry point. It atomically enqueues
// the encoded bytes and the result processor, then blocks until the result
// arrives or the connection's transport fuse fires.
func PerformRequest[R any](ctx context.Context, d *Dispatcher, req Request[R]) (R, error) {
	var zero R

	if err, closed := d.transport.Get(); closed {
		return zero, err
	}

	traceID, _ := pglog.TraceID()
	resultCh := make(chan Outcome[R], 1)

	parser := req.NewParser()
	rp := &resultProcessor{
		traceID: traceID,
		feed: func(msg wire.Message) (bool, error) {
			step := parser.Feed(msg)
			if !step.Done {
				return false, nil
			}
			if step.Err != nil {
				resultCh <- Outcome[R]{Err: step.Err}
				return true, step.Err
			}
			resultCh <- Outcome[R]{Value: step.Result}
			return true, nil
		},
		fulfill: func(err error) {
			d.opts.Observer.completed(traceID, err)
			// If feed() already delivered a value, this is a no-op
			// duplicate send guard for the shutdown path below.
			select {
			case resultCh <- Outcome[R]{Err: err}:
			default:
			}
		},
	}

	// Atomic two-queue enqueue: both sends must be admitted together so
	// wire order equals resultProcessorQ order. Go channels offer no
	// multi-channel transactional send, so submitMu is held across both
	// sends: concurrent callers cannot interleave their pairs, and because
	// both queues are consumed strictly FIFO, whichever caller's
	// resultProcessorQ send lands first also has its serializerMsgQ send
	// land first. resultProcessorQ is written first, so a processor is
	// always queued before its bytes can reach the wire.
	d.submitMu.Lock()
	d.resultProcessorQ <- rp
	d.serializerMsgQ <- serializeMessage{traceID: traceID, encode: req.Encode}
	d.submitMu.Unlock()

	d.opts.Observer.enqueued(traceID)

	select {
	case out := <-resultCh:
		return out.Value, out.Err
	case <-d.transport.Done():
		// The transport failed before the interpreter's drain sweep ever
		// saw this request (it enqueued after that sweep already ran to
		// completion), so nothing will ever fulfil resultCh. Resolve with
		// the same transport error every other pending caller sees.
		te, _ := d.transport.Get()
		return zero, te
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Stop tears down all five loops and closes the underlying connection.
// Pending result cells observe a TransportError("stopped").
func (d *Dispatcher) Stop() error {
	if err := d.lifecycle.transitionTo(Stopping, nil); err != nil {
		return err
	}
	d.transport.Put(pgerrors.NewTransportError("stopped", nil))
	err := d.conn.Close()
	d.wg.Wait()
	d.lifecycle.transitionTo(Stopped, err)
	d.log.Info("dispatcher stopped")
	if d.opts.OnStopped != nil {
		d.opts.OnStopped(d, err)
	}
	return err
}

func (d *Dispatcher) publishTransportError(err error) {
	te := pgerrors.NewTransportError(err.Error(), err)
	if d.transport.Put(te) {
		d.log.Error("transport error", pglog.Error("cause", err))
		d.opts.Observer.transportError(te)
	}
}

// debugFingerprint computes the xxhash checksum of an outbound encoding
// for debug-level trace correlation between "bytes we built" and "bytes
// observed on the wire" -- see DESIGN.md for why xxhash specifically.
func debugFingerprint(b []byte) uint64 { return xxhash.Sum64(b) }
