package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Source is a pull-based cursor over encoded bytes. Decoding consumes from
// a Source but never owns it.
type Source interface {
	// ReadByte returns the next byte, or io.EOF when the source is exhausted.
	ReadByte() (byte, error)
	// Next consumes exactly n bytes. It fails with ErrTruncatedInput when
	// fewer than n bytes remain.
	Next(n uint64) ([]byte, error)
	// More reports whether at least one byte remains without consuming it.
	More() bool
	// Offset is the number of bytes consumed so far.
	Offset() int64
}

// BytesSource reads from an in-memory buffer. Slices returned by Next
// alias the buffer.
type BytesSource struct {
	buf []byte
	pos int
}

// NewBytesSource creates a source over data. data is borrowed, not copied.
func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{buf: data}
}

func (s *BytesSource) ReadByte() (byte, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

func (s *BytesSource) Next(n uint64) ([]byte, error) {
	if n > uint64(len(s.buf)-s.pos) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedInput, n, len(s.buf)-s.pos)
	}
	data := s.buf[s.pos : s.pos+int(n)]
	s.pos += int(n)
	return data, nil
}

func (s *BytesSource) More() bool { return s.pos < len(s.buf) }

func (s *BytesSource) Offset() int64 { return int64(s.pos) }

// Remaining returns the unconsumed tail of the buffer.
func (s *BytesSource) Remaining() []byte { return s.buf[s.pos:] }

func (s *BytesSource) aliases() bool { return true }

// ReaderSource reads from an io.Reader through a bufio.Reader. Each call to
// Next returns a freshly allocated slice.
type ReaderSource struct {
	r   *bufio.Reader
	off int64
	err error // first non-EOF read error
}

// NewReaderSource creates a source that consumes r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: bufio.NewReader(r)}
}

func (s *ReaderSource) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, s.fail(err)
	}
	s.off++
	return b, nil
}

func (s *ReaderSource) Next(n uint64) ([]byte, error) {
	if n <= uint64(s.r.Buffered()) || n <= bufferedChunk {
		buf := make([]byte, n)
		got, err := io.ReadFull(s.r, buf)
		s.off += int64(got)
		if err != nil {
			return nil, s.truncated(err, n, uint64(got))
		}
		return buf, nil
	}
	// A declared length can be arbitrarily large. Grow with the data that
	// actually arrives instead of trusting it for the allocation size.
	var buf bytes.Buffer
	got, err := io.CopyN(&buf, s.r, int64(n))
	s.off += got
	if err != nil {
		return nil, s.truncated(err, n, uint64(got))
	}
	return buf.Bytes(), nil
}

const bufferedChunk = 64 << 10

func (s *ReaderSource) More() bool {
	if s.err != nil {
		return false
	}
	_, err := s.r.Peek(1)
	if err != nil {
		s.fail(err)
		return false
	}
	return true
}

func (s *ReaderSource) Offset() int64 { return s.off }

// Err returns the first read error other than io.EOF.
func (s *ReaderSource) Err() error { return s.err }

func (s *ReaderSource) fail(err error) error {
	if err != io.EOF && s.err == nil {
		s.err = err
	}
	return err
}

func (s *ReaderSource) truncated(err error, want, got uint64) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedInput, want, got)
	}
	return s.fail(err)
}

// sourceErr reports a sticky read error for sources that keep one.
func sourceErr(src Source) error {
	if es, ok := src.(interface{ Err() error }); ok {
		return es.Err()
	}
	return nil
}

func aliasing(src Source) bool {
	a, ok := src.(interface{ aliases() bool })
	return ok && a.aliases()
}
