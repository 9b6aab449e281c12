package pooltest

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/dan-strohschein/pgwire-go/dispatcher"
	"github.com/dan-strohschein/pgwire-go/pgconn/mock"
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

// BenchmarkPoolConcurrentSimpleQuery drives many goroutines through a
// shared pool of mock-transport dispatchers, each scripted with one simple
// query's response. Each iteration only acquires and releases a dispatcher
// (no query is sent), to exercise Get/Put contention the way a real
// connection pool would see it under load.
func BenchmarkPoolConcurrentSimpleQuery(b *testing.B) {
	p := New(func(ctx context.Context) (*dispatcher.Dispatcher, error) {
		conn := mock.New()
		conn.Push(frame(wire.BackendCommandComplete, cstr("SELECT 1")))
		conn.Push(frame(wire.BackendReadyForQuery, []byte{'I'}))
		d := dispatcher.New(conn, dispatcher.DefaultOptions())
		d.Start()
		return d, nil
	}, 4, 8)
	defer p.Close()

	if err := p.Warm(context.Background()); err != nil {
		b.Fatalf("warm: %v", err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			d, err := p.Get(context.Background())
			if err != nil {
				b.Fatalf("get: %v", err)
			}
			p.Put(d)
		}
	})
}
