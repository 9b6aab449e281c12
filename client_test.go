package pgwire

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/dan-strohschein/pgwire-go/dispatcher"
	"github.com/dan-strohschein/pgwire-go/notify"
	"github.com/dan-strohschein/pgwire-go/pgconn/mock"
	"github.com/dan-strohschein/pgwire-go/pgerrors"
	"github.com/dan-strohschein/pgwire-go/wire"
)

func frame(tag wire.BackendTag, payload []byte) []byte {
	buf := make([]byte, 5+len(payload))
	buf[0] = byte(tag)
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(payload)))
	copy(buf[5:], payload)
	return buf
}

func cstr(s string) []byte { return append([]byte(s), 0) }

func authFrame(kind int32, salt ...byte) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(kind))
	payload = append(payload, salt...)
	return frame(wire.BackendAuthentication, payload)
}

func backendKeyFrame(pid, secret int32) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], uint32(pid))
	binary.BigEndian.PutUint32(payload[4:8], uint32(secret))
	return frame(wire.BackendBackendKeyData, payload)
}

func readyFrame() []byte {
	return frame(wire.BackendReadyForQuery, []byte{'I'})
}

func newTestClient(t *testing.T) (*Client, *mock.Conn) {
	t.Helper()
	conn := mock.New()
	d := dispatcher.New(conn, dispatcher.DefaultOptions())
	d.Start()
	t.Cleanup(func() { d.Stop() })
	c := &Client{settings: Settings{User: "app", Database: "app"}, d: d, log: d.Log(), notify: notify.New(64)}
	d.OnUnaffiliated(func(msg interface{}) {
		if n, ok := msg.(pgerrors.Notification); ok {
			c.notify.Publish(n)
		}
	})
	return c, conn
}

func TestHandshakeSucceedsWithoutPassword(t *testing.T) {
	c, conn := newTestClient(t)
	conn.Push(authFrame(wire.AuthOK))
	conn.Push(frame(wire.BackendParameterStatus, append(cstr("client_encoding"), cstr("UTF8")...)))
	conn.Push(backendKeyFrame(1234, 5678))
	conn.Push(readyFrame())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.handshake(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandshakeSendsMD5PasswordThenSucceeds(t *testing.T) {
	c, conn := newTestClient(t)
	c.settings.Password = "hunter2"
	conn.Push(authFrame(wire.AuthMD5Password, 1, 2, 3, 4))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	handshakeErr := make(chan error, 1)
	go func() { handshakeErr <- c.handshake(ctx) }()

	// A server answers the password only after receiving it, so the rest of
	// the handshake is pushed once bytes follow the StartupMessage. The
	// StartupMessage has no leading tag byte; its first four bytes are its
	// length.
	startupLen := -1
	for startupLen < 0 && ctx.Err() == nil {
		if w := conn.WrittenBytes(); len(w) >= 4 {
			if n := int(binary.BigEndian.Uint32(w[0:4])); len(w) > n {
				startupLen = n
			}
		}
		time.Sleep(time.Millisecond)
	}
	conn.Push(authFrame(wire.AuthOK))
	conn.Push(backendKeyFrame(1, 1))
	conn.Push(readyFrame())

	if err := <-handshakeErr; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	written := conn.WrittenBytes()
	if len(written) == 0 {
		t.Fatal("expected some bytes to have been written")
	}
	// The PasswordMessage's tag byte sits right after the StartupMessage.
	if startupLen < 0 || written[startupLen] != 'p' {
		t.Fatal("expected a PasswordMessage ('p') to follow the StartupMessage")
	}
}

func TestHandshakeSurfacesBackendError(t *testing.T) {
	c, conn := newTestClient(t)
	errPayload := append(append(cstr("SFATAL"), cstr("C28000")...), append(cstr("Mauthentication failed"), 0)...)
	conn.Push(frame(wire.BackendErrorResponse, errPayload))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.handshake(ctx)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestSimpleQueryDecodesRowsAndCommandTag(t *testing.T) {
	c, conn := newTestClient(t)

	rowDesc := make([]byte, 0)
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 1)
	rowDesc = append(rowDesc, cstr("name")...)
	rowDesc = binary.BigEndian.AppendUint32(rowDesc, 0)   // table oid
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 0)   // attnum
	rowDesc = binary.BigEndian.AppendUint32(rowDesc, 25)  // type oid (text)
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 0xffff) // type size
	rowDesc = binary.BigEndian.AppendUint32(rowDesc, 0)   // type modifier
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 0)   // format

	dataRow := make([]byte, 0)
	dataRow = binary.BigEndian.AppendUint16(dataRow, 1)
	dataRow = binary.BigEndian.AppendUint32(dataRow, 5)
	dataRow = append(dataRow, []byte("alice")...)

	conn.Push(frame(wire.BackendRowDescription, rowDesc))
	conn.Push(frame(wire.BackendDataRow, dataRow))
	conn.Push(frame(wire.BackendCommandComplete, cstr("SELECT 1")))
	conn.Push(readyFrame())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := c.SimpleQuery(ctx, "select name from users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CommandTag != "SELECT 1" {
		t.Fatalf("got command tag %q", result.CommandTag)
	}
	if len(result.Rows) != 1 || string(result.Rows[0].Values[0]) != "alice" {
		t.Fatalf("got rows %+v", result.Rows)
	}
	if len(result.Columns) != 1 || result.Columns[0].Name != "name" {
		t.Fatalf("got columns %+v", result.Columns)
	}
}

func int32Bytes(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func TestQueryRunsParameterisedBinaryRoundTrip(t *testing.T) {
	c, conn := newTestClient(t)

	rowDesc := make([]byte, 0)
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 1)
	rowDesc = append(rowDesc, cstr("?column?")...)
	rowDesc = binary.BigEndian.AppendUint32(rowDesc, 0)      // table oid
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 0)      // attnum
	rowDesc = binary.BigEndian.AppendUint32(rowDesc, 23)     // type oid (int4)
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 4)      // type size
	rowDesc = binary.BigEndian.AppendUint32(rowDesc, 0)      // type modifier
	rowDesc = binary.BigEndian.AppendUint16(rowDesc, 1)      // format: binary

	dataRow := make([]byte, 0)
	dataRow = binary.BigEndian.AppendUint16(dataRow, 1)
	dataRow = binary.BigEndian.AppendUint32(dataRow, 4)
	dataRow = append(dataRow, int32Bytes(5)...)

	conn.Push(frame(wire.BackendParseComplete, nil))
	conn.Push(frame(wire.BackendBindComplete, nil))
	conn.Push(frame(wire.BackendRowDescription, rowDesc))
	conn.Push(frame(wire.BackendDataRow, dataRow))
	conn.Push(frame(wire.BackendCommandComplete, cstr("SELECT 1")))
	conn.Push(readyFrame())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := c.Query(ctx, "SELECT $1::int + $2::int",
		[]wire.BindParam{{Format: 1, Value: int32Bytes(2)}, {Format: 1, Value: int32Bytes(3)}},
		[]int16{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CommandTag != "SELECT 1" {
		t.Fatalf("got command tag %q", result.CommandTag)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("got rows %+v", result.Rows)
	}
	got := binary.BigEndian.Uint32(result.Rows[0].Values[0])
	if got != 5 {
		t.Fatalf("got %d, want 5", got)
	}

	written := conn.WrittenBytes()
	if len(written) == 0 || written[0] != byte(wire.FrontendParse) {
		t.Fatalf("expected a Parse ('P') message to have been written first, got %v", written)
	}
}

func TestNotificationsDeliversToMultipleSubscribers(t *testing.T) {
	c, _ := newTestClient(t)

	sub1 := c.Notifications("")
	sub2 := c.Notifications("updates")
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	c.notify.Publish(pgerrors.Notification{PID: 1, Channel: "updates", Payload: "row changed"})

	select {
	case n := <-sub1.C:
		if n.Channel != "updates" {
			t.Fatalf("got %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for wildcard subscriber")
	}

	select {
	case n := <-sub2.C:
		if n.Channel != "updates" {
			t.Fatalf("got %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel-filtered subscriber")
	}
}
