package wire

import (
	"bytes"
	"fmt"
	"math"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVarint
	KindFixed32
	KindFixed64
	KindFloat32
	KindFloat64
	KindBytes
	KindString
	KindMessage
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindVarint:  "varint",
	KindFixed32: "fixed32",
	KindFixed64: "fixed64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindBytes:   "bytes",
	KindString:  "string",
	KindMessage: "message",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a field payload. Decoding produces raw kinds only (varint,
// fixed32, fixed64, bytes, and message for groups); the caller converts
// them with the As* methods using its own schema knowledge.
type Value struct {
	kind Kind
	num  uint64 // varint value or fixed/float bit pattern
	raw  []byte
	str  string
	msg  Message
}

func ValueOfUint64(v uint64) Value { return Value{kind: KindVarint, num: v} }

// ValueOfInt64 stores v as a plain (two's complement) varint.
func ValueOfInt64(v int64) Value { return Value{kind: KindVarint, num: uint64(v)} }

// ValueOfSint64 stores v zigzag-mapped, as sint32/sint64 fields expect.
func ValueOfSint64(v int64) Value { return Value{kind: KindVarint, num: EncodeZigZag64(v)} }

func ValueOfBool(v bool) Value {
	if v {
		return ValueOfUint64(1)
	}
	return ValueOfUint64(0)
}

func ValueOfFixed32(v uint32) Value { return Value{kind: KindFixed32, num: uint64(v)} }

func ValueOfFixed64(v uint64) Value { return Value{kind: KindFixed64, num: v} }

func ValueOfFloat32(v float32) Value {
	return Value{kind: KindFloat32, num: uint64(math.Float32bits(v))}
}

func ValueOfFloat64(v float64) Value {
	return Value{kind: KindFloat64, num: math.Float64bits(v)}
}

func ValueOfBytes(v []byte) Value { return Value{kind: KindBytes, raw: v} }

func ValueOfString(v string) Value { return Value{kind: KindString, str: v} }

func ValueOfMessage(fields ...Field) Value { return Value{kind: KindMessage, msg: fields} }

// Kind reports which member is set.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by one of the ValueOf constructors
// or by the decoder.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// WireType is the wire type inferred from the value's kind.
func (v Value) WireType() WireType {
	switch v.kind {
	case KindFixed64, KindFloat64:
		return WireFixed64
	case KindFixed32, KindFloat32:
		return WireFixed32
	case KindBytes, KindString, KindMessage:
		return WireBytes
	default:
		return WireVarint
	}
}

// AsUint64 returns the varint value or the fixed-width bit pattern.
func (v Value) AsUint64() (uint64, error) {
	switch v.kind {
	case KindVarint, KindFixed32, KindFixed64:
		return v.num, nil
	}
	return 0, v.mismatch("integer")
}

// AsInt64 reinterprets the integer as two's complement (int32, int64,
// sfixed64). For sfixed32 use AsInt32.
func (v Value) AsInt64() (int64, error) {
	u, err := v.AsUint64()
	return int64(u), err
}

// AsInt32 truncates to 32 bits, as int32 and sfixed32 fields decode.
func (v Value) AsInt32() (int32, error) {
	u, err := v.AsUint64()
	return int32(u), err
}

// AsSint64 undoes the zigzag mapping of a sint64 field.
func (v Value) AsSint64() (int64, error) {
	if v.kind != KindVarint {
		return 0, v.mismatch("sint64")
	}
	return DecodeZigZag64(v.num), nil
}

// AsSint32 undoes the zigzag mapping of a sint32 field.
func (v Value) AsSint32() (int32, error) {
	if v.kind != KindVarint {
		return 0, v.mismatch("sint32")
	}
	return DecodeZigZag32(v.num), nil
}

func (v Value) AsBool() (bool, error) {
	if v.kind != KindVarint {
		return false, v.mismatch("bool")
	}
	return v.num != 0, nil
}

// AsFloat32 reinterprets a 32-bit payload as IEEE-754 binary32.
func (v Value) AsFloat32() (float32, error) {
	if v.kind != KindFixed32 && v.kind != KindFloat32 {
		return 0, v.mismatch("float32")
	}
	return math.Float32frombits(uint32(v.num)), nil
}

// AsFloat64 reinterprets a 64-bit payload as IEEE-754 binary64.
func (v Value) AsFloat64() (float64, error) {
	if v.kind != KindFixed64 && v.kind != KindFloat64 {
		return 0, v.mismatch("float64")
	}
	return math.Float64frombits(v.num), nil
}

// AsBytes returns a length-delimited payload.
func (v Value) AsBytes() ([]byte, error) {
	switch v.kind {
	case KindBytes:
		return v.raw, nil
	case KindString:
		return []byte(v.str), nil
	}
	return nil, v.mismatch("bytes")
}

// AsString returns a length-delimited payload as a string. No UTF-8
// validation is done.
func (v Value) AsString() (string, error) {
	switch v.kind {
	case KindBytes:
		return string(v.raw), nil
	case KindString:
		return v.str, nil
	}
	return "", v.mismatch("string")
}

// Fields returns the nested fields of a message or group value.
func (v Value) Fields() Message {
	return v.msg
}

// AsMessage returns nested fields. A bytes payload is parsed as an encoded
// message with the default configuration.
func (v Value) AsMessage() (Message, error) {
	return v.AsMessageWithConfig(DefaultConfig())
}

// AsMessageWithConfig is AsMessage with explicit decoder limits.
func (v Value) AsMessageWithConfig(cfg Config) (Message, error) {
	switch v.kind {
	case KindMessage:
		return v.msg, nil
	case KindBytes:
		return NewDecoderWithConfig(v.raw, cfg).DecodeMessage()
	case KindString:
		return NewDecoderWithConfig([]byte(v.str), cfg).DecodeMessage()
	}
	return nil, v.mismatch("message")
}

// Equal compares structurally on the wire representation: a bytes value
// equals the string it was encoded from, and a fixed64 equals the float64
// with the same bit pattern.
func (v Value) Equal(w Value) bool {
	if v.rawKind() != w.rawKind() {
		return false
	}
	switch v.rawKind() {
	case KindBytes:
		a, _ := v.AsBytes()
		b, _ := w.AsBytes()
		return bytes.Equal(a, b)
	case KindMessage:
		return v.msg.Equal(w.msg)
	default:
		return v.num == w.num
	}
}

// rawKind is the kind the decoder would produce for v.
func (v Value) rawKind() Kind {
	switch v.kind {
	case KindFloat32:
		return KindFixed32
	case KindFloat64:
		return KindFixed64
	case KindString:
		return KindBytes
	}
	return v.kind
}

func (v Value) mismatch(want string) error {
	return fmt.Errorf("%w: %s value read as %s", ErrValueMismatch, v.kind, want)
}

// Equal reports whether both messages hold the same fields in the same order.
func (m Message) Equal(o Message) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i].Number != o[i].Number || m[i].WireType != o[i].WireType || !m[i].Value.Equal(o[i].Value) {
			return false
		}
	}
	return true
}
