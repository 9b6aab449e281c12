package dispatcher

import "github.com/dan-strohschein/pgwire-go/pgerrors"

// Observer fires fixed callbacks at the points where a request's lifecycle
// is externally observable, rather than wrapping every command with
// generic Before/After interception. Each callback runs on the goroutine
// that reached that point (the PerformRequest caller, or one of the five
// loops), as noted per field. A nil field is simply not called.
type Observer struct {
	// OnRequestEnqueued fires in the PerformRequest caller after its atomic
	// two-queue enqueue, with the trace ID assigned to the request.
	OnRequestEnqueued func(traceID string)

	// OnRequestCompleted fires when a ResultProcessor's continuation runs,
	// whether it succeeded or failed.
	OnRequestCompleted func(traceID string, err error)

	// OnTransportError fires exactly once, when the write-once fuse is
	// first set, on whichever loop set it.
	OnTransportError func(err *pgerrors.TransportError)

	// OnUnaffiliatedMessage fires for every message routed to the
	// unaffiliated sink: from the Interpreter while it is idle
	// (notifications, backend errors with no waiting processor, and
	// protocol errors in idle state), and from the Slicer for a framing
	// failure.
	OnUnaffiliatedMessage func(msg interface{})
}

func (o *Observer) enqueued(traceID string) {
	if o != nil && o.OnRequestEnqueued != nil {
		o.OnRequestEnqueued(traceID)
	}
}

func (o *Observer) completed(traceID string, err error) {
	if o != nil && o.OnRequestCompleted != nil {
		o.OnRequestCompleted(traceID, err)
	}
}

func (o *Observer) transportError(err *pgerrors.TransportError) {
	if o != nil && o.OnTransportError != nil {
		o.OnTransportError(err)
	}
}

func (o *Observer) unaffiliated(msg interface{}) {
	if o != nil && o.OnUnaffiliatedMessage != nil {
		o.OnUnaffiliatedMessage(msg)
	}
}
