package wire

import "fmt"

// Encoder accumulates encoded fields in one buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder whose buffer starts with capacity size.
func NewEncoder(size int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, size),
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// EncodeMessage appends every field in order. On error the buffer is left
// as it was before the call.
func (e *Encoder) EncodeMessage(fields Message) error {
	b, err := AppendMessage(e.buf, fields)
	if err != nil {
		return err
	}
	e.buf = b
	return nil
}

// EncodeField encodes one field with the wire type inferred from v.
func EncodeField(num FieldNumber, v Value) ([]byte, error) {
	return AppendField(nil, NewField(num, v))
}

// EncodeFieldAs encodes one field with an explicit wire type. The value
// kind must fit the wire type, otherwise ErrValueMismatch is returned.
func EncodeFieldAs(num FieldNumber, v Value, wt WireType) ([]byte, error) {
	return AppendField(nil, Field{Number: num, Value: v, WireType: wt})
}

// EncodeMessage concatenates the encodings of fields in the order given.
// Duplicate or unordered field numbers are written as-is.
func EncodeMessage(fields Message) ([]byte, error) {
	return AppendMessage(nil, fields)
}

// AppendMessage appends the encoding of fields to b.
func AppendMessage(b []byte, fields Message) ([]byte, error) {
	var err error
	for _, f := range fields {
		if b, err = AppendField(b, f); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// AppendField appends the tag and payload of f to b. A start-group field
// also appends its nested fields and the matching end-group tag.
func AppendField(b []byte, f Field) ([]byte, error) {
	v, num := f.Value, f.Number
	switch f.WireType {
	case WireVarint:
		if v.kind != KindVarint {
			return nil, fieldErr(num, valueMismatch(v, f.WireType))
		}
		b = AppendTag(b, num, WireVarint)
		return AppendVarint(b, v.num), nil

	case WireFixed64:
		if v.kind != KindFixed64 && v.kind != KindFloat64 {
			return nil, fieldErr(num, valueMismatch(v, f.WireType))
		}
		b = AppendTag(b, num, WireFixed64)
		return AppendFixed64(b, v.num), nil

	case WireFixed32:
		if v.kind != KindFixed32 && v.kind != KindFloat32 {
			return nil, fieldErr(num, valueMismatch(v, f.WireType))
		}
		b = AppendTag(b, num, WireFixed32)
		return AppendFixed32(b, uint32(v.num)), nil

	case WireBytes:
		switch v.kind {
		case KindBytes:
			return AppendBytes(AppendTag(b, num, WireBytes), v.raw), nil
		case KindString:
			return AppendString(AppendTag(b, num, WireBytes), v.str), nil
		case KindMessage:
			body, err := AppendMessage(nil, v.msg)
			if err != nil {
				return nil, fieldErr(num, err)
			}
			return AppendBytes(AppendTag(b, num, WireBytes), body), nil
		}
		return nil, fieldErr(num, valueMismatch(v, f.WireType))

	case WireStartGroup:
		if v.kind != KindMessage {
			return nil, fieldErr(num, valueMismatch(v, f.WireType))
		}
		b = AppendTag(b, num, WireStartGroup)
		b, err := AppendMessage(b, v.msg)
		if err != nil {
			return nil, fieldErr(num, err)
		}
		return AppendTag(b, num, WireEndGroup), nil

	case WireEndGroup:
		// A lone end tag. Only useful for building raw streams by hand.
		if v.IsValid() {
			return nil, fieldErr(num, valueMismatch(v, f.WireType))
		}
		return AppendTag(b, num, WireEndGroup), nil

	default:
		return nil, fieldErr(num, fmt.Errorf("%w: %d", ErrInvalidWireType, uint8(f.WireType)))
	}
}

func fieldErr(num FieldNumber, err error) error {
	return fmt.Errorf("field %d: %w", num, err)
}
