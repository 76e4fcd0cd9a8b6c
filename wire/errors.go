package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decode and encode errors. Match them with errors.Is.
var (
	ErrTruncatedInput     = errors.New("protoraw: truncated input")
	ErrInvalidWireType    = errors.New("protoraw: invalid wire type")
	ErrUnexpectedGroupEnd = errors.New("protoraw: end group without matching start group")
	ErrUnterminatedGroup  = errors.New("protoraw: group not terminated before end of input")
	ErrMismatchedGroupEnd = errors.New("protoraw: end group field number does not match start group")
	ErrVarintOverflow     = errors.New("protoraw: varint overflows uint64")
	ErrMaxDepthExceeded   = errors.New("protoraw: maximum nesting depth exceeded")
	ErrMaxLengthExceeded  = errors.New("protoraw: length-delimited payload exceeds limit")
	ErrValueMismatch      = errors.New("protoraw: value kind does not match wire type")
)

// DecodeError carries the input offset and the field-number path at which
// decoding failed.
type DecodeError struct {
	Offset    int64         // byte offset in the top-level input
	FieldPath []FieldNumber // outermost first
	Err       error         // underlying error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if len(e.FieldPath) == 0 {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	parts := make([]string, len(e.FieldPath))
	for i, n := range e.FieldPath {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return fmt.Sprintf("%v at offset %d (field path %s)", e.Err, e.Offset, strings.Join(parts, "."))
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// newDecodeError wraps err once. An error that is already a *DecodeError
// passes through so the innermost offset survives.
func newDecodeError(err error, offset int64) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	logger.V(4).Info("malformed input", "error", err.Error(), "offset", offset)
	return &DecodeError{Offset: offset, Err: err}
}

// wrapWithField prepends num to the field path of a *DecodeError.
func wrapWithField(err error, num FieldNumber) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return &DecodeError{
			Offset:    de.Offset,
			FieldPath: append([]FieldNumber{num}, de.FieldPath...),
			Err:       de.Err,
		}
	}
	return &DecodeError{Offset: -1, FieldPath: []FieldNumber{num}, Err: err}
}

func valueMismatch(v Value, wt WireType) error {
	return fmt.Errorf("%w: %s value cannot be written as %s", ErrValueMismatch, v.Kind(), wt)
}
