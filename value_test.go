package pgwire

import "testing"

func TestValueIsNull(t *testing.T) {
	if !Null().IsNull() {
		t.Fatal("expected Null() to be null")
	}
	if TextValue("x").IsNull() {
		t.Fatal("expected TextValue to not be null")
	}
}

func TestTextCodecRoundTrip(t *testing.T) {
	c := TextCodec{}
	v, err := c.DecodeValue(25, 0, []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindText || v.Text != "hello" {
		t.Fatalf("got %+v", v)
	}
	raw, err := c.EncodeValue(25, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != "hello" {
		t.Fatalf("got %q", raw)
	}
}

func TestCodecRegistryFallsBackToDefault(t *testing.T) {
	r := NewCodecRegistry(TextCodec{})
	v, err := r.DecodeValue(23, 0, []byte("42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Text != "42" {
		t.Fatalf("got %+v", v)
	}
}

type doublingCodec struct{}

func (doublingCodec) DecodeValue(oid uint32, format int16, raw []byte) (Value, error) {
	return Int64Value(int64(len(raw)) * 2), nil
}
func (doublingCodec) EncodeValue(oid uint32, v Value) ([]byte, error) {
	return nil, nil
}

func TestCodecRegistryDispatchesByOID(t *testing.T) {
	r := NewCodecRegistry(TextCodec{})
	r.Register(23, doublingCodec{})

	v, err := r.DecodeValue(23, 0, []byte("abcd"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindInt64 || v.Int64 != 8 {
		t.Fatalf("expected registered codec to run, got %+v", v)
	}

	v, err = r.DecodeValue(25, 0, []byte("abcd"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindText {
		t.Fatalf("expected default codec for unregistered OID, got %+v", v)
	}
}

func TestCodecRegistryShortCircuitsNull(t *testing.T) {
	r := NewCodecRegistry(TextCodec{})
	r.Register(23, doublingCodec{})

	v, err := r.DecodeValue(23, 0, nil)
	if err != nil || !v.IsNull() {
		t.Fatalf("expected null short-circuit before reaching codec, got %+v, %v", v, err)
	}

	raw, err := r.EncodeValue(23, Null())
	if err != nil || raw != nil {
		t.Fatalf("expected nil, nil for encoding null, got %v, %v", raw, err)
	}
}
