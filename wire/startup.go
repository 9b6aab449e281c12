package wire

import "github.com/dan-strohschein/pgwire-go/pgerrors"

// StartupOutcome is the result of feeding messages following a
// StartupMessage. The handshake has two shapes: the server may demand a
// password (NeedsPassword, with AuthKind and MD5Salt describing it), or admit
// the connection outright, in which case the parser keeps consuming
// ParameterStatus/BackendKeyData itself and only completes at
// ReadyForQuery.
type StartupOutcome struct {
	NeedsPassword bool
	AuthKind      int32
	MD5Salt       [4]byte
	BackendKeyPID int32
	BackendKeySecret int32
	Ready         bool
	BackendError  *pgerrors.BackendError
}

// StartupResponse builds the parser fed immediately after a StartupMessage.
// It returns as soon as the server asks for a password; the caller is
// expected to answer with a PasswordMessage and continue with
// StartupTail's parser.
func StartupResponse() *Parser[StartupOutcome] {
	var start FeedFunc[StartupOutcome]
	start = errorAsSuccess[StartupOutcome](func(be *pgerrors.BackendError) StartupOutcome {
		return StartupOutcome{BackendError: be}
	})(func(msg Message) Step[StartupOutcome] {
		switch msg.Tag {
		case BackendAuthentication:
			auth, err := DecodeAuthenticationRequest(msg.Payload)
			if err != nil {
				return Fail[StartupOutcome](err)
			}
			switch auth.Kind {
			case AuthOK:
				return NeedMore[StartupOutcome]()
			case AuthCleartextPassword, AuthMD5Password:
				return Done(StartupOutcome{NeedsPassword: true, AuthKind: auth.Kind, MD5Salt: auth.MD5Salt})
			default:
				return Fail[StartupOutcome](pgerrors.NewProtocolError("unsupported authentication method"))
			}
		case BackendParameterStatus, BackendNoticeResponse:
			return NeedMore[StartupOutcome]()
		case BackendBackendKeyData:
			return NeedMore[StartupOutcome]()
		case BackendReadyForQuery:
			return Done(StartupOutcome{Ready: true})
		default:
			return Fail[StartupOutcome](pgerrors.NewProtocolError("unexpected message during startup"))
		}
	})
	return &Parser[StartupOutcome]{Current: start}
}

// StartupTail builds the parser fed after a PasswordMessage: it consumes
// AuthenticationOK, ParameterStatus and BackendKeyData transparently and
// completes at ReadyForQuery.
func StartupTail() *Parser[StartupOutcome] {
	out := &StartupOutcome{}
	var feed FeedFunc[StartupOutcome]
	feed = errorAsSuccess[StartupOutcome](func(be *pgerrors.BackendError) StartupOutcome {
		out.BackendError = be
		return *out
	})(func(msg Message) Step[StartupOutcome] {
		switch msg.Tag {
		case BackendAuthentication:
			auth, err := DecodeAuthenticationRequest(msg.Payload)
			if err != nil {
				return Fail[StartupOutcome](err)
			}
			if auth.Kind != AuthOK {
				return Fail[StartupOutcome](pgerrors.NewProtocolError("authentication rejected"))
			}
			return NeedMore[StartupOutcome]()
		case BackendParameterStatus, BackendNoticeResponse:
			return NeedMore[StartupOutcome]()
		case BackendBackendKeyData:
			bkd, err := DecodeBackendKeyData(msg.Payload)
			if err != nil {
				return Fail[StartupOutcome](err)
			}
			out.BackendKeyPID = bkd.ProcessID
			out.BackendKeySecret = bkd.SecretKey
			return NeedMore[StartupOutcome]()
		case BackendReadyForQuery:
			out.Ready = true
			return Done(*out)
		default:
			return Fail[StartupOutcome](pgerrors.NewProtocolError("unexpected message during startup"))
		}
	})
	return &Parser[StartupOutcome]{Current: feed}
}
