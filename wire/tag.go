package wire

import "fmt"

// PackTag creates a tag from field number and wire type
func PackTag(num FieldNumber, wt WireType) Tag {
	return Tag(uint64(num)<<3 | uint64(wt&0x7))
}

// UnpackTag splits a tag into field number and wire type. Wire types 6
// and 7 are reserved and rejected.
func UnpackTag(tag Tag) (FieldNumber, WireType, error) {
	num, wt := FieldNumber(tag>>3), WireType(tag&0x7)
	if !wt.Valid() {
		return num, wt, fmt.Errorf("%w: %d (field %d)", ErrInvalidWireType, uint8(wt), num)
	}
	return num, wt, nil
}

// AppendTag appends the varint encoding of the tag for (num, wt).
func AppendTag(b []byte, num FieldNumber, wt WireType) []byte {
	return AppendVarint(b, uint64(PackTag(num, wt)))
}

// EncodeTag returns the varint encoding of the tag for (num, wt).
func EncodeTag(num FieldNumber, wt WireType) []byte {
	return AppendTag(nil, num, wt)
}

// DecodeTag reads and unpacks one tag.
func DecodeTag(src Source) (FieldNumber, WireType, error) {
	v, err := DecodeVarint(src)
	if err != nil {
		return 0, 0, err
	}
	return UnpackTag(Tag(v))
}
