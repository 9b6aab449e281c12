package pgwire

import (
	"math/big"
	"time"
)

// Kind tags which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindBytes
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindBigInt
	KindBool
	KindChar
	KindFloat64
	KindRational
	KindDate
	KindTimestamp
	KindTimestampTZ
	KindTime
	KindDuration
)

// Value is the sum type enumerated by the external interfaces: every
// primitive shape a codec might produce from wire bytes. Exactly the field
// matching Kind is meaningful; the rest are zero. This is the seam codecs
// plug into -- pgwire itself never decides which Kind an OID maps to.
type Value struct {
	Kind Kind

	Text         string
	Bytes        []byte
	Int32        int32
	Int64        int64
	Uint32       uint32
	Uint64       uint64
	BigInt       *big.Int
	Bool         bool
	Char         rune
	Float64      float64
	Rational     *big.Rat
	Date         time.Time // year/month/day only, in UTC
	Timestamp    time.Time // local (no zone) timestamp, in UTC
	TimestampTZ  time.Time // zoned/UTC timestamp
	Time         time.Duration // time-of-day, offset since midnight
	Duration     time.Duration
}

// IsNull reports whether this Value represents SQL NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Null is the nullable-of-value case: the zero Value already satisfies it,
// this constructor just names the intent at call sites.
func Null() Value { return Value{Kind: KindNull} }

func TextValue(s string) Value   { return Value{Kind: KindText, Text: s} }
func BytesValue(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }
func Int64Value(n int64) Value   { return Value{Kind: KindInt64, Int64: n} }
func Int32Value(n int32) Value   { return Value{Kind: KindInt32, Int32: n} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func Float64Value(f float64) Value { return Value{Kind: KindFloat64, Float64: f} }

// Codec converts between wire bytes for one column (text or binary format,
// per the FieldDescription format code) and a Value. Concrete per-OID
// codecs are the caller's responsibility per the excluded-collaborators
// list; pgwire only defines the registry shape.
type Codec interface {
	// DecodeValue converts raw column bytes (nil means SQL NULL) into a
	// Value. oid identifies the Postgres type, format is 0 (text) or 1
	// (binary), matching FieldDescription.Format.
	DecodeValue(oid uint32, format int16, raw []byte) (Value, error)

	// EncodeValue converts a Value into the wire bytes for a Bind
	// parameter targeting oid, or (nil, nil) for SQL NULL.
	EncodeValue(oid uint32, v Value) ([]byte, error)
}

// CodecRegistry dispatches to a Codec by OID, falling back to a default
// codec for OIDs without a specific registration.
type CodecRegistry struct {
	byOID   map[uint32]Codec
	Default Codec
}

func NewCodecRegistry(def Codec) *CodecRegistry {
	return &CodecRegistry{byOID: make(map[uint32]Codec), Default: def}
}

func (r *CodecRegistry) Register(oid uint32, c Codec) { r.byOID[oid] = c }

func (r *CodecRegistry) codecFor(oid uint32) Codec {
	if c, ok := r.byOID[oid]; ok {
		return c
	}
	return r.Default
}

func (r *CodecRegistry) DecodeValue(oid uint32, format int16, raw []byte) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	return r.codecFor(oid).DecodeValue(oid, format, raw)
}

func (r *CodecRegistry) EncodeValue(oid uint32, v Value) ([]byte, error) {
	if v.IsNull() {
		return nil, nil
	}
	return r.codecFor(oid).EncodeValue(oid, v)
}

// TextCodec is the default Codec: it treats every value as its already-text
// wire representation, sufficient for the simple query protocol where the
// server always sends text format. Binary-format columns need a
// caller-supplied Codec registered per OID.
type TextCodec struct{}

func (TextCodec) DecodeValue(oid uint32, format int16, raw []byte) (Value, error) {
	return TextValue(string(raw)), nil
}

func (TextCodec) EncodeValue(oid uint32, v Value) ([]byte, error) {
	if v.Kind == KindText {
		return []byte(v.Text), nil
	}
	if v.Kind == KindBytes {
		return v.Bytes, nil
	}
	return []byte(v.Text), nil
}
