package wire

import (
	"fmt"
	"io"
)

// MaxVarintLen64 is the longest encoding of a 64-bit varint.
const MaxVarintLen64 = 10

// AppendVarint appends the base-128 encoding of v to b.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// EncodeVarint returns the base-128 encoding of v (1 to 10 bytes).
func EncodeVarint(v uint64) []byte {
	return AppendVarint(make([]byte, 0, VarintSize(v)), v)
}

// DecodeVarint reads one varint from src.
func DecodeVarint(src Source) (uint64, error) {
	var result uint64
	var shift uint

	for i := 0; i < MaxVarintLen64; i++ {
		b, err := src.ReadByte()
		if err != nil {
			return 0, readErr(err, "varint")
		}

		// The 10th byte holds only bit 63.
		if i == MaxVarintLen64-1 && b > 1 {
			return 0, ErrVarintOverflow
		}

		result |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return result, nil
		}
		shift += 7
	}

	return 0, ErrVarintOverflow
}

// ConsumeVarint decodes a varint from the front of b and reports how many
// bytes it used.
func ConsumeVarint(b []byte) (uint64, int, error) {
	src := NewBytesSource(b)
	v, err := DecodeVarint(src)
	if err != nil {
		return 0, 0, err
	}
	return v, int(src.Offset()), nil
}

// SkipVarint consumes a varint without decoding it.
func SkipVarint(src Source) error {
	_, err := DecodeVarint(src)
	return err
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}

// ZIGZAG

// EncodeZigZag64 maps a signed integer so small magnitudes stay small:
// 0 -> 0, -1 -> 1, 1 -> 2, -2 -> 3.
func EncodeZigZag64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// DecodeZigZag64 is the inverse of EncodeZigZag64.
func DecodeZigZag64(encoded uint64) int64 {
	return int64(encoded>>1) ^ -int64(encoded&1)
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer
func DecodeZigZag32(encoded uint64) int32 {
	return int32((uint32(encoded) >> 1) ^ uint32(-int32(encoded&1)))
}

// EncodeSint zigzag-maps v and returns its varint encoding.
func EncodeSint(v int64) []byte {
	return EncodeVarint(EncodeZigZag64(v))
}

// DecodeSint reads a zigzag varint from src.
func DecodeSint(src Source) (int64, error) {
	v, err := DecodeVarint(src)
	if err != nil {
		return 0, err
	}
	return DecodeZigZag64(v), nil
}

// readErr maps end of input to ErrTruncatedInput and keeps other read
// failures intact.
func readErr(err error, what string) error {
	if err == io.EOF {
		return fmt.Errorf("%w: reading %s", ErrTruncatedInput, what)
	}
	return fmt.Errorf("reading %s: %w", what, err)
}
