package wire

import "github.com/dan-strohschein/pgwire-go/pgerrors"

// Step is the outcome of feeding one Message into a Parser: either the
// parser needs more input (Done=false, Err=nil), completed successfully
// (Done=true, Err=nil), or failed (Err!=nil).
type Step[R any] struct {
	Done   bool
	Result R
	Err    error
}

func NeedMore[R any]() Step[R]           { return Step[R]{} }
func Done[R any](r R) Step[R]            { return Step[R]{Done: true, Result: r} }
func Fail[R any](err error) Step[R]      { return Step[R]{Done: true, Err: err} }

// FeedFunc is one state of a Parser: given the next message, it returns a
// Step. When the Step is not Done, the Parser stays on the same FeedFunc
// (closures capture whatever partial state they've accumulated) -- so a
// FeedFunc is free to be self-referential via closure capture.
type FeedFunc[R any] func(msg Message) Step[R]

// Parser wraps a single mutable FeedFunc so composed parsers can be reused
// across multiple pipeline stages by re-assigning Current.
type Parser[R any] struct {
	Current FeedFunc[R]
}

// Feed advances the parser by one message.
func (p *Parser[R]) Feed(msg Message) Step[R] {
	return p.Current(msg)
}

// tolerateInterleaved wraps a FeedFunc so that NoticeResponse and
// ParameterStatus messages are consumed transparently at any point during
// the parse, since the server may emit either between any two messages of
// a well-formed response.
func tolerateInterleaved[R any](inner FeedFunc[R]) FeedFunc[R] {
	var self FeedFunc[R]
	self = func(msg Message) Step[R] {
		switch msg.Tag {
		case BackendNoticeResponse, BackendParameterStatus:
			return NeedMore[R]()
		default:
			step := inner(msg)
			return step
		}
	}
	return self
}

// errorAsSuccess lets a parser complete successfully with a BackendError
// value when the server sends ErrorResponse in place of the expected
// message: a backend error is an expected-shape parse result, not a
// protocol failure, so it must not tear down the pipeline.
func errorAsSuccess[R any](onError func(*pgerrors.BackendError) R) func(FeedFunc[R]) FeedFunc[R] {
	return func(inner FeedFunc[R]) FeedFunc[R] {
		return tolerateInterleaved(func(msg Message) Step[R] {
			if msg.Tag == BackendErrorResponse {
				be, err := DecodeErrorResponse(msg.Payload)
				if err != nil {
					return Fail[R](err)
				}
				return Done(onError(be))
			}
			return inner(msg)
		})
	}
}

// SkipUntilReadyForQuery discards messages until (and including) a
// ReadyForQuery, returning its transaction-status byte. Useful for
// resynchronising after an error mid-pipeline.
func SkipUntilReadyForQuery() *Parser[byte] {
	var feed FeedFunc[byte]
	feed = func(msg Message) Step[byte] {
		if msg.Tag == BackendReadyForQuery {
			rfq, err := DecodeReadyForQuery(msg.Payload)
			if err != nil {
				return Fail[byte](err)
			}
			return Done(rfq.TxStatus)
		}
		return NeedMore[byte]()
	}
	return &Parser[byte]{Current: feed}
}

// SimpleQueryOutcome is the parsed result of one SimpleQuery round trip:
// either rows with their description and the command tag, an empty-query
// marker, or a backend error -- always followed by draining to
// ReadyForQuery internally.
type SimpleQueryOutcome struct {
	Columns      []FieldDescription
	Rows         []DataRow
	CommandTag   string
	Empty        bool
	BackendError *pgerrors.BackendError
}

// SimpleQuery builds the parser for the simple-query protocol: optional
// RowDescription, zero or more DataRow, then CommandComplete (or
// EmptyQueryResponse), then ReadyForQuery. ErrorResponse at any point ends
// the query with a BackendError result rather than a parse failure.
func SimpleQuery() *Parser[SimpleQueryOutcome] {
	out := &SimpleQueryOutcome{}
	var cur, awaitReady FeedFunc[SimpleQueryOutcome]

	// drain records an ErrorResponse and keeps consuming until
	// ReadyForQuery, so the outcome is delivered only once the server is
	// ready for the next request.
	drain := func(inner FeedFunc[SimpleQueryOutcome]) FeedFunc[SimpleQueryOutcome] {
		return func(msg Message) Step[SimpleQueryOutcome] {
			if msg.Tag != BackendErrorResponse {
				return inner(msg)
			}
			be, err := DecodeErrorResponse(msg.Payload)
			if err != nil {
				return Fail[SimpleQueryOutcome](err)
			}
			out.BackendError, cur = be, awaitReady
			return NeedMore[SimpleQueryOutcome]()
		}
	}

	awaitReady = drain(tolerateInterleaved(func(msg Message) Step[SimpleQueryOutcome] {
		if msg.Tag == BackendReadyForQuery {
			return Done(*out)
		}
		return NeedMore[SimpleQueryOutcome]()
	}))

	var afterRows FeedFunc[SimpleQueryOutcome]
	afterRows = drain(tolerateInterleaved(func(msg Message) Step[SimpleQueryOutcome] {
		switch msg.Tag {
		case BackendDataRow:
			row, err := DecodeDataRow(msg.Payload)
			if err != nil {
				return Fail[SimpleQueryOutcome](err)
			}
			out.Rows = append(out.Rows, row)
			return NeedMore[SimpleQueryOutcome]()
		case BackendCommandComplete:
			cc, err := DecodeCommandComplete(msg.Payload)
			if err != nil {
				return Fail[SimpleQueryOutcome](err)
			}
			out.CommandTag = cc.Tag
			cur = awaitReady
			return waitFor(awaitReady, msg)
		case BackendEmptyQueryResponse:
			out.Empty = true
			cur = awaitReady
			return waitFor(awaitReady, msg)
		default:
			return Fail[SimpleQueryOutcome](pgerrors.NewProtocolError("unexpected message in simple query result"))
		}
	}))

	var start FeedFunc[SimpleQueryOutcome]
	start = drain(tolerateInterleaved(func(msg Message) Step[SimpleQueryOutcome] {
		switch msg.Tag {
		case BackendRowDescription:
			rd, err := DecodeRowDescription(msg.Payload)
			if err != nil {
				return Fail[SimpleQueryOutcome](err)
			}
			out.Columns = rd.Fields
			cur = afterRows
			return NeedMore[SimpleQueryOutcome]()
		case BackendDataRow, BackendCommandComplete, BackendEmptyQueryResponse:
			cur = afterRows
			return afterRows(msg)
		default:
			return Fail[SimpleQueryOutcome](pgerrors.NewProtocolError("unexpected message starting simple query result"))
		}
	}))

	cur = start
	return &Parser[SimpleQueryOutcome]{Current: func(msg Message) Step[SimpleQueryOutcome] { return cur(msg) }}
}

// waitFor hands the message that triggered a transition to next only when
// that message is itself a ReadyForQuery; for any other message it returns
// NeedMore, and next starts with the message that follows.
func waitFor[R any](next FeedFunc[R], msg Message) Step[R] {
	if msg.Tag == BackendReadyForQuery {
		return next(msg)
	}
	return NeedMore[R]()
}

// ExtendedQueryOutcome is the parsed result of a Parse+Bind+Describe+
// Execute+Sync pipeline stage: a parameterised query round trip.
type ExtendedQueryOutcome struct {
	ParamOIDs    []uint32
	Columns      []FieldDescription
	Rows         []DataRow
	CommandTag   string
	BackendError *pgerrors.BackendError
}

// ExtendedQuery builds the parser for one full extended-query round trip,
// tolerating ParseComplete/BindComplete/NoData/ParameterDescription in
// whatever combination the caller's message sequence produced.
func ExtendedQuery() *Parser[ExtendedQueryOutcome] {
	out := &ExtendedQueryOutcome{}

	var awaitReady FeedFunc[ExtendedQueryOutcome]
	awaitReady = errorAsSuccess[ExtendedQueryOutcome](func(be *pgerrors.BackendError) ExtendedQueryOutcome {
		out.BackendError = be
		return *out
	})(tolerateInterleaved(func(msg Message) Step[ExtendedQueryOutcome] {
		if msg.Tag == BackendReadyForQuery {
			return Done(*out)
		}
		return NeedMore[ExtendedQueryOutcome]()
	}))

	var body FeedFunc[ExtendedQueryOutcome]
	body = errorAsSuccess[ExtendedQueryOutcome](func(be *pgerrors.BackendError) ExtendedQueryOutcome {
		out.BackendError = be
		return *out
	})(tolerateInterleaved(func(msg Message) Step[ExtendedQueryOutcome] {
		switch msg.Tag {
		case BackendParseComplete, BackendBindComplete:
			return NeedMore[ExtendedQueryOutcome]()
		case BackendParameterDescr:
			pd, err := DecodeParameterDescription(msg.Payload)
			if err != nil {
				return Fail[ExtendedQueryOutcome](err)
			}
			out.ParamOIDs = pd.ParamOIDs
			return NeedMore[ExtendedQueryOutcome]()
		case BackendNoData:
			return NeedMore[ExtendedQueryOutcome]()
		case BackendRowDescription:
			rd, err := DecodeRowDescription(msg.Payload)
			if err != nil {
				return Fail[ExtendedQueryOutcome](err)
			}
			out.Columns = rd.Fields
			return NeedMore[ExtendedQueryOutcome]()
		case BackendDataRow:
			row, err := DecodeDataRow(msg.Payload)
			if err != nil {
				return Fail[ExtendedQueryOutcome](err)
			}
			out.Rows = append(out.Rows, row)
			return NeedMore[ExtendedQueryOutcome]()
		case BackendCommandComplete:
			cc, err := DecodeCommandComplete(msg.Payload)
			if err != nil {
				return Fail[ExtendedQueryOutcome](err)
			}
			out.CommandTag = cc.Tag
			return NeedMore[ExtendedQueryOutcome]()
		case BackendPortalSuspended:
			return NeedMore[ExtendedQueryOutcome]()
		case BackendReadyForQuery:
			return awaitReady(msg)
		case BackendCloseComplete:
			return NeedMore[ExtendedQueryOutcome]()
		default:
			return Fail[ExtendedQueryOutcome](pgerrors.NewProtocolError("unexpected message in extended query result"))
		}
	}))

	return &Parser[ExtendedQueryOutcome]{Current: body}
}
