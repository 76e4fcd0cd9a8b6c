package wire

import (
	"encoding/binary"
	"math"
)

// Fixed32Size and Fixed64Size are the payload sizes of I32 and I64 fields.
const (
	Fixed32Size = 4
	Fixed64Size = 8
)

// ENCODING

// AppendFixed32 appends v in little-endian order.
func AppendFixed32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendFixed64 appends v in little-endian order.
func AppendFixed64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

// EncodeFixed32 encodes a 32-bit fixed-width value
func EncodeFixed32(v uint32) []byte {
	return AppendFixed32(make([]byte, 0, Fixed32Size), v)
}

// EncodeFixed64 encodes a 64-bit fixed-width value
func EncodeFixed64(v uint64) []byte {
	return AppendFixed64(make([]byte, 0, Fixed64Size), v)
}

// EncodeFloat32 encodes the IEEE-754 bit pattern of v.
func EncodeFloat32(v float32) []byte {
	return EncodeFixed32(math.Float32bits(v))
}

// EncodeFloat64 encodes the IEEE-754 bit pattern of v.
func EncodeFloat64(v float64) []byte {
	return EncodeFixed64(math.Float64bits(v))
}

// DECODING

// DecodeFixed32 decodes a 32-bit fixed-width value
func DecodeFixed32(src Source) (uint32, error) {
	b, err := src.Next(Fixed32Size)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// DecodeFixed64 decodes a 64-bit fixed-width value
func DecodeFixed64(src Source) (uint64, error) {
	b, err := src.Next(Fixed64Size)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// DecodeFloat32 decodes a 32-bit float from fixed32 data
func DecodeFloat32(src Source) (float32, error) {
	v, err := DecodeFixed32(src)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// DecodeFloat64 decodes a 64-bit float from fixed64 data
func DecodeFloat64(src Source) (float64, error) {
	v, err := DecodeFixed64(src)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}
