package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FieldReader walks a single message payload field by field. It never
// copies: every accessor returns a slice or string aliasing the underlying
// payload, matching readBuffer's convention of borrowing rather than
// duplicating.
type FieldReader struct {
	buf []byte
}

// NewFieldReader wraps a message payload for sequential field extraction.
func NewFieldReader(payload []byte) *FieldReader { return &FieldReader{buf: payload} }

func (r *FieldReader) Len() int { return len(r.buf) }

// CString reads a NUL-terminated string.
func (r *FieldReader) CString() (string, error) {
	i := bytes.IndexByte(r.buf, 0)
	if i == -1 {
		return "", fmt.Errorf("wire: no NUL terminator in remaining %d bytes", len(r.buf))
	}
	s := string(r.buf[:i])
	r.buf = r.buf[i+1:]
	return s, nil
}

func (r *FieldReader) Byte() (byte, error) {
	if len(r.buf) < 1 {
		return 0, fmt.Errorf("wire: expected 1 byte, have %d", len(r.buf))
	}
	v := r.buf[0]
	r.buf = r.buf[1:]
	return v, nil
}

func (r *FieldReader) Int16() (int16, error) {
	if len(r.buf) < 2 {
		return 0, fmt.Errorf("wire: expected 2 bytes, have %d", len(r.buf))
	}
	v := int16(binary.BigEndian.Uint16(r.buf[:2]))
	r.buf = r.buf[2:]
	return v, nil
}

func (r *FieldReader) Uint16() (uint16, error) {
	v, err := r.Int16()
	return uint16(v), err
}

func (r *FieldReader) Int32() (int32, error) {
	if len(r.buf) < 4 {
		return 0, fmt.Errorf("wire: expected 4 bytes, have %d", len(r.buf))
	}
	v := int32(binary.BigEndian.Uint32(r.buf[:4]))
	r.buf = r.buf[4:]
	return v, nil
}

func (r *FieldReader) Uint32() (uint32, error) {
	v, err := r.Int32()
	return uint32(v), err
}

// Bytes reads n raw bytes.
func (r *FieldReader) Bytes(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, fmt.Errorf("wire: expected %d bytes, have %d", n, len(r.buf))
	}
	v := r.buf[:n]
	r.buf = r.buf[n:]
	return v, nil
}

// Remaining returns whatever bytes are left unread.
func (r *FieldReader) Remaining() []byte { return r.buf }
