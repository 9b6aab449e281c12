package dispatcher

import "github.com/dan-strohschein/pgwire-go/wire"

// Outcome is what a Request ultimately resolves to: exactly one of a
// result, a backend error (which does not close the connection), a
// protocol error, or a transport error (which does).
type Outcome[R any] struct {
	Value R
	Err   error
}

// Request is the atomic unit of pipeline admission: an encoded byte
// builder plus a parse action that consumes the resulting response
// messages.
type Request[R any] struct {
	// Encode returns the bytes to submit. PerformRequest queues it, and the
	// Serializer loop calls it once when the request reaches the front of
	// serializerMsgQ.
	Encode func() []byte

	// NewParser returns a fresh parser bound to this request; the
	// interpreter feeds it messages until it reports Done.
	NewParser func() *wire.Parser[R]
}

// resultProcessor is the internal, type-erased form of a ResultProcessor
// queued for the Interpreter loop: it wraps a Request[R]'s parser so a
// single MPSC queue (resultProcessorQ) can carry processors for
// differently-typed requests.
type resultProcessor struct {
	traceID string
	feed    func(msg wire.Message) (done bool, err error)
	// fulfill is invoked exactly once, either by the interpreter on
	// successful/failed completion, or by the dispatcher on shutdown /
	// transport error.
	fulfill func(err error)
}
