package wire

import "fmt"

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType uint8

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // deprecated group start
	WireEndGroup   WireType = 4 // deprecated group end
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

// String returns the name used by the protobuf encoding guide.
func (w WireType) String() string {
	switch w {
	case WireVarint:
		return "VARINT"
	case WireFixed64:
		return "I64"
	case WireBytes:
		return "LEN"
	case WireStartGroup:
		return "SGROUP"
	case WireEndGroup:
		return "EGROUP"
	case WireFixed32:
		return "I32"
	default:
		return fmt.Sprintf("WireType(%d)", uint8(w))
	}
}

// Valid reports whether w is one of the six defined wire types.
func (w WireType) Valid() bool {
	return w <= WireFixed32
}

// FieldNumber represents a protobuf field number
type FieldNumber uint64

// MaxFieldNumber is the largest field number that survives the tag shift.
const MaxFieldNumber FieldNumber = 1<<61 - 1

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// Field is one decoded or to-be-encoded record.
type Field struct {
	Number   FieldNumber
	Value    Value
	WireType WireType
}

// NewField builds a field whose wire type is inferred from the value.
func NewField(num FieldNumber, v Value) Field {
	return Field{Number: num, Value: v, WireType: v.WireType()}
}

// Pair returns the field without its wire type.
func (f Field) Pair() (FieldNumber, Value) {
	return f.Number, f.Value
}

// Message is an ordered sequence of fields. Order matches the wire.
type Message []Field

// Get returns the last field carrying num, matching protobuf's
// last-one-wins rule for scalar fields.
func (m Message) Get(num FieldNumber) (Field, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Number == num {
			return m[i], true
		}
	}
	return Field{}, false
}

// All returns every field carrying num in wire order.
func (m Message) All(num FieldNumber) []Field {
	var out []Field
	for _, f := range m {
		if f.Number == num {
			out = append(out, f)
		}
	}
	return out
}
