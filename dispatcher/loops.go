package dispatcher

import (
	"errors"
	"io"

	"github.com/dan-strohschein/pgwire-go/pgerrors"
	"github.com/dan-strohschein/pgwire-go/pglog"
	"github.com/dan-strohschein/pgwire-go/wire"
)

// runSerializer is the Serializer loop: dequeue SerializeMessage
// items, materialise their encoding, forward to outgoingBytesQ.
func (d *Dispatcher) runSerializer() {
	defer d.wg.Done()
	for {
		select {
		case msg := <-d.serializerMsgQ:
			buf := msg.encode()
			if d.log != nil {
				d.log.Debug("serialized message", pglog.String("traceID", msg.traceID), pglog.Int("bytes", len(buf)), pglog.Uint64("fingerprint", debugFingerprint(buf)))
			}
			select {
			case d.outgoingBytesQ <- buf:
			case <-d.transport.Done():
				return
			}
		case <-d.transport.Done():
			return
		}
	}
}

// runSender is the Sender loop: flush byte buffers to the
// connection, retrying partial writes, publishing a TransportError exactly
// once on failure.
func (d *Dispatcher) runSender() {
	defer d.wg.Done()
	for {
		select {
		case buf := <-d.outgoingBytesQ:
			if err := writeFull(d.conn, buf); err != nil {
				d.publishTransportError(err)
				return
			}
		case <-d.transport.Done():
			return
		}
	}
}

func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// runReceiver is the Receiver loop: read chunks from the
// connection, forward to incomingBytesQ, publish a TransportError on EOF
// or I/O error.
func (d *Dispatcher) runReceiver() {
	defer d.wg.Done()
	defer close(d.incomingBytesQ)
	scratch := make([]byte, d.opts.ReadChunkSize)
	for {
		n, err := d.conn.Read(scratch)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, scratch[:n])
			select {
			case d.incomingBytesQ <- chunk:
			case <-d.transport.Done():
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.publishTransportError(errors.New("connection closed by peer"))
			} else {
				d.publishTransportError(err)
			}
			return
		}
	}
}

// runSlicer is the Slicer loop: frame the byte stream into discrete
// messages by header length.
func (d *Dispatcher) runSlicer() {
	defer d.wg.Done()
	defer close(d.incomingMsgQ)
	slicer := wire.NewSlicer()
	for chunk := range d.incomingBytesQ {
		slicer.Feed(chunk)
		for {
			msg, ok, err := slicer.Next()
			if err != nil {
				// A framing failure means synchronisation with the
				// server is lost; treat it as a protocol error routed
				// to the unaffiliated sink, publish it as the transport
				// error so pending requests and the other loops unwind,
				// and stop framing further bytes rather than trying to
				// resynchronise.
				d.routeUnaffiliated(pgerrors.NewProtocolError(err.Error()))
				d.publishTransportError(err)
				return
			}
			if !ok {
				break
			}
			select {
			case d.incomingMsgQ <- msg:
			case <-d.transport.Done():
				return
			}
		}
	}
}

// runInterpreter is the Interpreter loop, the heart of the
// dispatcher: dispatch messages to the head pending result processor, or
// route to the unaffiliated sink when idle.
func (d *Dispatcher) runInterpreter() {
	defer d.wg.Done()
	var current *resultProcessor

	for msg := range d.incomingMsgQ {
		if current == nil {
			select {
			case current = <-d.resultProcessorQ:
			default:
			}
		}

		if current != nil {
			done, err := current.feed(msg)
			if done {
				current.fulfill(err)
				current = nil
			}
			continue
		}

		d.handleIdleMessage(msg)
	}

	// Drain: connection closed with a processor still waiting for
	// messages that will never come. Fulfil it with the transport error
	// so PerformRequest callers don't hang forever.
	err := d.transport.Wait()
	if current != nil {
		current.fulfill(err)
	}
	for {
		select {
		case rp := <-d.resultProcessorQ:
			rp.fulfill(err)
		default:
			return
		}
	}
}

func (d *Dispatcher) handleIdleMessage(msg wire.Message) {
	switch msg.Tag {
	case wire.BackendNotificationResp:
		n, err := wire.DecodeNotificationResponse(msg.Payload)
		if err != nil {
			d.routeUnaffiliated(pgerrors.NewProtocolError(err.Error()))
			return
		}
		d.routeUnaffiliated(n)
	case wire.BackendErrorResponse:
		be, err := wire.DecodeErrorResponse(msg.Payload)
		if err != nil {
			d.routeUnaffiliated(pgerrors.NewProtocolError(err.Error()))
			return
		}
		d.routeUnaffiliated(be)
	case wire.BackendReadyForQuery, wire.BackendParameterStatus, wire.BackendNoticeResponse:
		// Expected idle traffic: keep-alive protocol chatter outside a
		// registered processor. Ignored here defensively.
	default:
		d.routeUnaffiliated(pgerrors.NewProtocolError("unexpected message in idle state: tag " + string(rune(msg.Tag))))
	}
}
