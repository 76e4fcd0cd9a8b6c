package wire

import "fmt"

// AppendBytes appends a length prefix followed by data.
func AppendBytes(b []byte, data []byte) []byte {
	b = AppendVarint(b, uint64(len(data)))
	return append(b, data...)
}

// AppendString appends a length prefix followed by the bytes of s.
func AppendString(b []byte, s string) []byte {
	b = AppendVarint(b, uint64(len(s)))
	return append(b, s...)
}

// EncodeLenField encodes data as a length-delimited payload.
func EncodeLenField(data []byte) []byte {
	return AppendBytes(make([]byte, 0, BytesSize(data)), data)
}

// DecodeLenField reads a length prefix and exactly that many bytes. For a
// BytesSource the result aliases the source buffer.
func DecodeLenField(src Source) ([]byte, error) {
	return decodeLen(src, 0)
}

func decodeLen(src Source, limit uint64) ([]byte, error) {
	n, err := DecodeVarint(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode length: %w", err)
	}
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrMaxLengthExceeded, n, limit)
	}
	return src.Next(n)
}

// BytesSize returns the size needed to encode the given bytes
func BytesSize(data []byte) int {
	return VarintSize(uint64(len(data))) + len(data)
}
