package wire

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
)

// Builder accumulates one or more encoded frontend messages into a single
// contiguous buffer, filling it directly rather than building an
// intermediate immutable byte sequence per field. Every encoding method
// Resets the Builder first and returns a slice of its buffer, so that
// slice is overwritten by the next call on the same Builder.
type Builder struct {
	buf    []byte
	lenPos int
}

// NewBuilder returns a Builder with a pre-sized backing array.
func NewBuilder() *Builder {
	return &Builder{buf: make([]byte, 0, 256)}
}

// Reset empties the builder for reuse.
func (b *Builder) Reset() { b.buf = b.buf[:0] }

// Bytes returns the accumulated buffer. The slice is invalidated by the
// next Reset.
func (b *Builder) Bytes() []byte { return b.buf }

// beginMsg writes the tag byte and reserves 4 bytes for the length,
// patched in by finishMsg.
func (b *Builder) beginMsg(tag byte) {
	b.buf = append(b.buf, tag)
	b.lenPos = len(b.buf)
	b.buf = append(b.buf, 0, 0, 0, 0)
}

// beginUntypedMsg starts a message with no leading type byte; in this
// Builder only StartupMessage uses it.
func (b *Builder) beginUntypedMsg() {
	b.lenPos = len(b.buf)
	b.buf = append(b.buf, 0, 0, 0, 0)
}

// finishMsg patches the length field with the number of bytes written since
// the corresponding beginMsg/beginUntypedMsg call, itself included.
func (b *Builder) finishMsg() {
	binary.BigEndian.PutUint32(b.buf[b.lenPos:], uint32(len(b.buf)-b.lenPos))
}

func (b *Builder) putByte(v byte)     { b.buf = append(b.buf, v) }
func (b *Builder) putBytes(v []byte)  { b.buf = append(b.buf, v...) }
func (b *Builder) putInt16(v int16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(v))
	b.buf = append(b.buf, tmp[:]...)
}
func (b *Builder) putInt32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.buf = append(b.buf, tmp[:]...)
}
func (b *Builder) putCString(s string) {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
}

// StartupMessage encodes the untyped connection-opening message: protocol
// version followed by NUL-terminated key/value pairs, terminated by an
// empty string.
func (b *Builder) StartupMessage(params map[string]string) []byte {
	b.Reset()
	b.beginUntypedMsg()
	b.putInt32(ProtocolVersion3_0)
	for k, v := range params {
		b.putCString(k)
		b.putCString(v)
	}
	b.putByte(0)
	b.finishMsg()
	return b.Bytes()
}

// PasswordMessage encodes a cleartext PasswordMessage.
func (b *Builder) PasswordMessage(password string) []byte {
	b.Reset()
	b.beginMsg(byte(FrontendPasswordMessage))
	b.putCString(password)
	b.finishMsg()
	return b.Bytes()
}

// MD5PasswordMessage computes and encodes an MD5-hashed PasswordMessage per
// the algorithm in the PostgreSQL protocol docs:
// "md5" + md5(md5(password+user)+salt) hex-encoded.
func (b *Builder) MD5PasswordMessage(user, password string, salt [4]byte) []byte {
	inner := md5.Sum([]byte(password + user))
	innerHex := hex.EncodeToString(inner[:])
	outer := md5.New()
	outer.Write([]byte(innerHex))
	outer.Write(salt[:])
	outerSum := hex.EncodeToString(outer.Sum(nil))

	b.Reset()
	b.beginMsg(byte(FrontendPasswordMessage))
	b.putCString("md5" + outerSum)
	b.finishMsg()
	return b.Bytes()
}

// Query encodes a simple-query protocol message.
func (b *Builder) Query(sql string) []byte {
	b.Reset()
	b.beginMsg(byte(FrontendQuery))
	b.putCString(sql)
	b.finishMsg()
	return b.Bytes()
}

// Parse encodes the extended-query Parse message. paramOIDs may be nil to
// let the server infer types.
func (b *Builder) Parse(stmtName, sql string, paramOIDs []uint32) []byte {
	b.Reset()
	b.beginMsg(byte(FrontendParse))
	b.putCString(stmtName)
	b.putCString(sql)
	b.putInt16(int16(len(paramOIDs)))
	for _, oid := range paramOIDs {
		b.putInt32(int32(oid))
	}
	b.finishMsg()
	return b.Bytes()
}

// BindParam is one positional parameter value for a Bind message. Format 0
// is text, 1 is binary. IsNull with Value ignored encodes a -1 length.
type BindParam struct {
	Format  int16
	Value   []byte
	IsNull  bool
}

// Bind encodes the extended-query Bind message binding portalName to
// stmtName with the given parameter values and requested result formats.
func (b *Builder) Bind(portalName, stmtName string, params []BindParam, resultFormats []int16) []byte {
	b.Reset()
	b.beginMsg(byte(FrontendBind))
	b.putCString(portalName)
	b.putCString(stmtName)

	b.putInt16(int16(len(params)))
	for _, p := range params {
		b.putInt16(p.Format)
	}

	b.putInt16(int16(len(params)))
	for _, p := range params {
		if p.IsNull {
			b.putInt32(-1)
			continue
		}
		b.putInt32(int32(len(p.Value)))
		b.putBytes(p.Value)
	}

	b.putInt16(int16(len(resultFormats)))
	for _, f := range resultFormats {
		b.putInt16(f)
	}
	b.finishMsg()
	return b.Bytes()
}

// DescribeKind selects between describing a prepared statement or a portal.
type DescribeKind byte

const (
	DescribeStatement DescribeKind = 'S'
	DescribePortal    DescribeKind = 'P'
)

// Describe encodes the extended-query Describe message.
func (b *Builder) Describe(kind DescribeKind, name string) []byte {
	b.Reset()
	b.beginMsg(byte(FrontendDescribe))
	b.putByte(byte(kind))
	b.putCString(name)
	b.finishMsg()
	return b.Bytes()
}

// Execute encodes the extended-query Execute message. maxRows of 0 means
// "no limit".
func (b *Builder) Execute(portalName string, maxRows int32) []byte {
	b.Reset()
	b.beginMsg(byte(FrontendExecute))
	b.putCString(portalName)
	b.putInt32(maxRows)
	b.finishMsg()
	return b.Bytes()
}

// Close encodes the extended-query Close message.
func (b *Builder) Close(kind DescribeKind, name string) []byte {
	b.Reset()
	b.beginMsg(byte(FrontendClose))
	b.putByte(byte(kind))
	b.putCString(name)
	b.finishMsg()
	return b.Bytes()
}

// Sync encodes the extended-query Sync message.
func (b *Builder) Sync() []byte {
	b.Reset()
	b.beginMsg(byte(FrontendSync))
	b.finishMsg()
	return b.Bytes()
}

// Flush encodes the extended-query Flush message.
func (b *Builder) Flush() []byte {
	b.Reset()
	b.beginMsg(byte(FrontendFlush))
	b.finishMsg()
	return b.Bytes()
}

// Terminate encodes the connection-closing Terminate message.
func (b *Builder) Terminate() []byte {
	b.Reset()
	b.beginMsg(byte(FrontendTerminate))
	b.finishMsg()
	return b.Bytes()
}

// AppendTo appends one or more already-built messages into a single pipeline
// batch, e.g. Parse+Bind+Describe+Execute+Sync for one parameterised query.
func AppendTo(dst []byte, msgs ...[]byte) []byte {
	for _, m := range msgs {
		dst = append(dst, m...)
	}
	return dst
}
