// Package pgconn provides the byte-stream transport the dispatcher's Sender
// and Receiver loops read and write. TLS, when enabled, is layered below
// this abstraction: callers of Dial never see a *tls.Conn, only the plain
// Conn interface.
package pgconn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Conn is the minimal duplex byte stream the dispatcher needs: a reader, a
// writer, and a way to unblock both on shutdown. Real TCP sockets and the
// in-memory mock transport both satisfy it.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	// SetDeadline arms an I/O deadline the way net.Conn does; the tcp
	// implementation forwards it, the mock implementation may ignore it.
	SetDeadline(t time.Time) error
}

// TLSOptions configures the optional TLS layer applied by Dial.
type TLSOptions struct {
	Enabled            bool
	InsecureSkipVerify bool
	CAFile             string
	CertFile           string
	KeyFile            string
}

func (o TLSOptions) buildConfig(serverName string) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
	if o.CAFile != "" {
		pem, err := os.ReadFile(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("pgconn: reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("pgconn: no certificates parsed from %s", o.CAFile)
		}
		cfg.RootCAs = pool
	}
	if o.CertFile != "" && o.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("pgconn: loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// DialOptions configures Dial.
type DialOptions struct {
	Address string // host:port
	Timeout time.Duration
	TLS     TLSOptions
}

// Dial opens a TCP connection to Address, optionally upgrading it to TLS
// via a handshake performed before Dial returns -- the same
// dial-then-handshake sequencing as transport/tcp/transport.go's
// createConnection.
func Dial(ctx context.Context, opts DialOptions) (Conn, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("pgconn: address is required")
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("pgconn: dialing %s: %w", opts.Address, err)
	}

	if !opts.TLS.Enabled {
		return conn, nil
	}

	serverName := opts.Address
	if idx := strings.LastIndex(opts.Address, ":"); idx >= 0 {
		serverName = opts.Address[:idx]
	}
	tlsConfig, err := opts.TLS.buildConfig(serverName)
	if err != nil {
		conn.Close()
		return nil, err
	}

	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		tlsConn.Close()
		return nil, fmt.Errorf("pgconn: TLS handshake failed: %w", err)
	}
	return tlsConn, nil
}
