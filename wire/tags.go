// Package wire implements the PostgreSQL frontend/backend protocol version
// 3.0: message tag constants, zero-copy builders for outbound messages, and
// zero-copy parsers for inbound messages. It knows nothing about queues,
// goroutines, or sockets; see the dispatcher package for that.
package wire

// FrontendTag identifies a message sent by the client.
type FrontendTag byte

// BackendTag identifies a message sent by the server.
type BackendTag byte

// Frontend message tags. StartupMessage and CancelRequest and SSLRequest
// carry no type byte at all -- they are the only untyped messages in the
// protocol. Of the three, the builder encodes only StartupMessage.
const (
	FrontendBind            FrontendTag = 'B'
	FrontendClose           FrontendTag = 'C'
	FrontendCopyData        FrontendTag = 'd'
	FrontendCopyDone        FrontendTag = 'c'
	FrontendCopyFail        FrontendTag = 'f'
	FrontendDescribe        FrontendTag = 'D'
	FrontendExecute         FrontendTag = 'E'
	FrontendFlush           FrontendTag = 'H'
	FrontendFunctionCall    FrontendTag = 'F'
	FrontendParse           FrontendTag = 'P'
	FrontendPasswordMessage FrontendTag = 'p'
	FrontendQuery           FrontendTag = 'Q'
	FrontendSync            FrontendTag = 'S'
	FrontendTerminate       FrontendTag = 'X'
)

// Backend message tags.
const (
	BackendAuthentication      BackendTag = 'R'
	BackendBackendKeyData      BackendTag = 'K'
	BackendBindComplete        BackendTag = '2'
	BackendCloseComplete       BackendTag = '3'
	BackendCommandComplete     BackendTag = 'C'
	BackendCopyData            BackendTag = 'd'
	BackendCopyDone            BackendTag = 'c'
	BackendCopyInResponse      BackendTag = 'G'
	BackendCopyOutResponse     BackendTag = 'H'
	BackendCopyBothResponse    BackendTag = 'W'
	BackendDataRow             BackendTag = 'D'
	BackendEmptyQueryResponse  BackendTag = 'I'
	BackendErrorResponse       BackendTag = 'E'
	BackendFunctionCallResp   BackendTag = 'V'
	BackendNoData              BackendTag = 'n'
	BackendNoticeResponse      BackendTag = 'N'
	BackendNotificationResp    BackendTag = 'A'
	BackendParameterDescr      BackendTag = 't'
	BackendParameterStatus     BackendTag = 'S'
	BackendParseComplete       BackendTag = '1'
	BackendPortalSuspended     BackendTag = 's'
	BackendReadyForQuery       BackendTag = 'Z'
	BackendRowDescription      BackendTag = 'T'
)

// Authentication sub-codes carried in the int32 payload of an
// AuthenticationRequest ('R') message.
const (
	AuthOK                = int32(0)
	AuthCleartextPassword = int32(3)
	AuthMD5Password       = int32(5)
)

// ProtocolVersion3_0 is the only startup protocol version this package
// speaks.
const ProtocolVersion3_0 int32 = 196608 // 3 << 16 | 0

// ReadyForQuery transaction-status bytes.
const (
	TxIdle     byte = 'I'
	TxInBlock  byte = 'T'
	TxInFailed byte = 'E'
)
