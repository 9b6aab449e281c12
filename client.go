// Package pgwire is the top-level facade: it resolves Settings, dials a
// connection, drives the startup/authentication handshake, and exposes
// SimpleQuery/Exec built directly on the dispatcher. It deliberately stays
// a thin driver over dispatcher.Dispatcher rather than growing into a
// query-builder DSL, connection pool, or transaction manager.
package pgwire

import (
	"context"
	"fmt"

	"github.com/dan-strohschein/pgwire-go/dispatcher"
	"github.com/dan-strohschein/pgwire-go/notify"
	"github.com/dan-strohschein/pgwire-go/pgconn"
	"github.com/dan-strohschein/pgwire-go/pgerrors"
	"github.com/dan-strohschein/pgwire-go/pglog"
	"github.com/dan-strohschein/pgwire-go/resultset"
	"github.com/dan-strohschein/pgwire-go/wire"
)

// Client is a single connection: dial, authenticate, issue queries, close.
// It is not safe to Query concurrently from multiple goroutines against the
// same Client -- the underlying Dispatcher pipelines requests but a single
// caller is expected to drive Session-style sequencing; concurrent callers
// should each own their own Client.
type Client struct {
	settings Settings
	d        *dispatcher.Dispatcher
	log      pglog.Logger
	notify   *notify.Bus
}

// Options bundles dispatcher-level configuration a caller may want to
// override; zero value uses dispatcher.DefaultOptions().
type Options = dispatcher.Options

// Connect dials settings.Address(), runs the startup/authentication
// handshake, and returns a ready-to-use Client. ctx bounds both the dial
// and the handshake.
func Connect(ctx context.Context, settings Settings, opts Options) (*Client, error) {
	conn, err := pgconn.Dial(ctx, pgconn.DialOptions{Address: settings.Address(), TLS: opts.TLS})
	if err != nil {
		return nil, fmt.Errorf("pgwire: dial: %w", err)
	}

	d := dispatcher.New(conn, opts)
	d.Start()

	c := &Client{settings: settings, d: d, log: d.Log(), notify: notify.New(64)}
	d.OnUnaffiliated(func(msg interface{}) {
		if n, ok := msg.(pgerrors.Notification); ok {
			c.notify.Publish(n)
		}
	})

	if err := c.handshake(ctx); err != nil {
		d.Stop()
		return nil, err
	}
	return c, nil
}

func startupParams(s Settings) map[string]string {
	params := map[string]string{"user": s.User}
	if s.Database != "" {
		params["database"] = s.Database
	}
	return params
}

// handshake drives StartupMessage -> [PasswordMessage] -> ReadyForQuery as
// a two-stage dispatcher.Session, since the password step is conditional on
// the server's authentication demand and can't be folded into one static
// Request.
func (c *Client) handshake(ctx context.Context) error {
	params := startupParams(c.settings)

	startupReq := dispatcher.Request[wire.StartupOutcome]{
		Encode:    func() []byte { return wire.NewBuilder().StartupMessage(params) },
		NewParser: wire.StartupResponse,
	}

	session := dispatcher.Bind(startupReq, func(first wire.StartupOutcome) dispatcher.Session[wire.StartupOutcome] {
		if !first.NeedsPassword {
			return dispatcher.Pure(first)
		}
		passwordReq := dispatcher.Request[wire.StartupOutcome]{
			Encode: func() []byte {
				b := wire.NewBuilder()
				if first.AuthKind == wire.AuthMD5Password {
					return b.MD5PasswordMessage(c.settings.User, c.settings.Password, first.MD5Salt)
				}
				return b.PasswordMessage(c.settings.Password)
			},
			NewParser: wire.StartupTail,
		}
		return dispatcher.Bind(passwordReq, dispatcher.Pure[wire.StartupOutcome])
	})

	outcome, err := dispatcher.RunSession(ctx, c.d, session)
	if err != nil {
		return err
	}
	if outcome.BackendError != nil {
		return outcome.BackendError
	}
	if !outcome.Ready {
		return pgerrors.NewProtocolError("startup did not reach ReadyForQuery")
	}
	c.log.Info("authenticated", pglog.String("user", c.settings.User), pglog.String("database", c.settings.Database))
	return nil
}

// SimpleQuery runs sql over the simple query protocol and returns the
// assembled result, or the backend error the server reported.
func (c *Client) SimpleQuery(ctx context.Context, sql string) (*resultset.Result, error) {
	req := dispatcher.Request[wire.SimpleQueryOutcome]{
		Encode:    func() []byte { return wire.NewBuilder().Query(sql) },
		NewParser: wire.SimpleQuery,
	}
	out, err := dispatcher.PerformRequest(ctx, c.d, req)
	if err != nil {
		return nil, err
	}
	if out.BackendError != nil {
		return nil, out.BackendError
	}
	return &resultset.Result{Columns: out.Columns, Rows: out.Rows, CommandTag: out.CommandTag}, nil
}

// Exec runs sql for its side effect and returns the number of rows
// affected, per the command tag.
func (c *Client) Exec(ctx context.Context, sql string) (int64, error) {
	res, err := c.SimpleQuery(ctx, sql)
	if err != nil {
		return 0, err
	}
	return resultset.RowsAffected(res)
}

// Query runs sql through the extended query protocol -- Parse, Bind with
// params, Describe the resulting portal, Execute to completion, Sync --
// rather than the simple query protocol SimpleQuery uses. Use it when the
// query takes parameters or the caller wants binary-format results;
// resultFormats selects text (0) or binary (1) per returned column,
// matching wire.Builder.Bind.
func (c *Client) Query(ctx context.Context, sql string, params []wire.BindParam, resultFormats []int16) (*resultset.Result, error) {
	req := dispatcher.Request[wire.ExtendedQueryOutcome]{
		Encode: func() []byte {
			b := wire.NewBuilder()
			var batch []byte
			batch = append(batch, b.Parse("", sql, nil)...)
			batch = append(batch, b.Bind("", "", params, resultFormats)...)
			batch = append(batch, b.Describe(wire.DescribePortal, "")...)
			batch = append(batch, b.Execute("", 0)...)
			batch = append(batch, b.Sync()...)
			return batch
		},
		NewParser: wire.ExtendedQuery,
	}
	out, err := dispatcher.PerformRequest(ctx, c.d, req)
	if err != nil {
		return nil, err
	}
	if out.BackendError != nil {
		return nil, out.BackendError
	}
	return &resultset.Result{Columns: out.Columns, Rows: out.Rows, CommandTag: out.CommandTag}, nil
}

// OnNotification registers fn to receive every asynchronous NOTIFY the
// server delivers outside of a request/response cycle, regardless of
// channel. It is a convenience wrapper over Notifications for callers who
// want a callback instead of a channel; fn runs on whichever goroutine
// drains the underlying subscription and must not block.
func (c *Client) OnNotification(fn func(pgerrors.Notification)) {
	sub := c.notify.Subscribe("")
	go func() {
		for n := range sub.C {
			fn(n)
		}
	}()
}

// Notifications returns a Subscription delivering every NOTIFY sent on
// channel ("" for every channel), letting multiple independent listeners
// in the same process each hold their own backlog without stealing
// deliveries from one another. Callers must Unsubscribe when done.
func (c *Client) Notifications(channel string) *notify.Subscription {
	return c.notify.Subscribe(channel)
}

// ID returns the dispatcher's connection identifier, useful for correlating
// log lines across a fleet of Clients.
func (c *Client) ID() string { return c.d.ID() }

// Close terminates the connection, stops the dispatcher's loops, and
// unsubscribes every notification listener registered via OnNotification
// or Notifications.
func (c *Client) Close() error {
	err := c.d.Stop()
	c.notify.Close()
	return err
}
