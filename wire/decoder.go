package wire

import (
	"bytes"
	"fmt"
	"io"
)

// Decoder handles low-level protobuf wire format decoding
type Decoder struct {
	src   Source
	cfg   Config
	depth int // open groups
}

// NewDecoder creates a decoder over data with the global configuration.
func NewDecoder(data []byte) *Decoder {
	return NewDecoderWithConfig(data, DefaultConfig())
}

// NewDecoderWithConfig creates a decoder over data with explicit limits.
func NewDecoderWithConfig(data []byte, cfg Config) *Decoder {
	return &Decoder{src: NewBytesSource(data), cfg: cfg}
}

// NewReaderDecoder creates a decoder that streams from r.
func NewReaderDecoder(r io.Reader) *Decoder {
	return NewSourceDecoder(NewReaderSource(r), DefaultConfig())
}

// NewSourceDecoder creates a decoder over any Source.
func NewSourceDecoder(src Source, cfg Config) *Decoder {
	return &Decoder{src: src, cfg: cfg}
}

// DecodeMessage decodes a whole message from data.
func DecodeMessage(data []byte) (Message, error) {
	return NewDecoder(data).DecodeMessage()
}

// DecodeMessageFrom decodes fields from src until it is exhausted.
func DecodeMessageFrom(src Source) (Message, error) {
	return NewSourceDecoder(src, DefaultConfig()).DecodeMessage()
}

// DecodeField decodes one field record from src. An end-group tag yields a
// field with WireType WireEndGroup and an invalid Value.
func DecodeField(src Source) (Field, error) {
	return NewSourceDecoder(src, DefaultConfig()).DecodeField()
}

// SkipField consumes the payload of a field whose tag has already been read.
func SkipField(src Source, num FieldNumber, wt WireType) error {
	return NewSourceDecoder(src, DefaultConfig()).SkipField(num, wt)
}

// More reports whether unread input remains.
func (d *Decoder) More() bool { return d.src.More() }

// Offset is the number of input bytes consumed.
func (d *Decoder) Offset() int64 { return d.src.Offset() }

// DecodeVarint - convenience method for main decoder
func (d *Decoder) DecodeVarint() (uint64, error) {
	return DecodeVarint(d.src)
}

// DecodeMessage reads fields until the input is exhausted. A stray end-group
// tag fails with ErrUnexpectedGroupEnd.
func (d *Decoder) DecodeMessage() (Message, error) {
	return d.decodeMessage(0, false)
}

// DecodeField reads one tag and its payload.
func (d *Decoder) DecodeField() (Field, error) {
	return d.decodeField()
}

// decodeMessage runs until the source is exhausted (top level) or until the
// end-group tag closing group.
func (d *Decoder) decodeMessage(group FieldNumber, inGroup bool) (Message, error) {
	var fields Message
	for {
		if !d.src.More() {
			if err := sourceErr(d.src); err != nil {
				return nil, newDecodeError(err, d.src.Offset())
			}
			if inGroup {
				return nil, newDecodeError(fmt.Errorf("%w: field %d", ErrUnterminatedGroup, group), d.src.Offset())
			}
			return fields, nil
		}

		start := d.src.Offset()
		f, err := d.decodeField()
		if err != nil {
			return nil, err
		}
		if f.WireType != WireEndGroup {
			fields = append(fields, f)
			continue
		}

		switch {
		case !inGroup:
			return nil, newDecodeError(fmt.Errorf("%w: field %d", ErrUnexpectedGroupEnd, f.Number), start)
		case f.Number != group:
			return nil, newDecodeError(fmt.Errorf("%w: opened %d, closed %d", ErrMismatchedGroupEnd, group, f.Number), start)
		}
		return fields, nil
	}
}

func (d *Decoder) decodeField() (Field, error) {
	start := d.src.Offset()
	num, wt, err := DecodeTag(d.src)
	if err != nil {
		return Field{}, newDecodeError(fmt.Errorf("failed to decode tag: %w", err), start)
	}

	f := Field{Number: num, WireType: wt}
	switch wt {
	case WireVarint:
		var v uint64
		v, err = DecodeVarint(d.src)
		f.Value = Value{kind: KindVarint, num: v}
	case WireFixed64:
		var v uint64
		v, err = DecodeFixed64(d.src)
		f.Value = Value{kind: KindFixed64, num: v}
	case WireFixed32:
		var v uint32
		v, err = DecodeFixed32(d.src)
		f.Value = Value{kind: KindFixed32, num: uint64(v)}
	case WireBytes:
		var b []byte
		b, err = d.decodeBytes()
		f.Value = Value{kind: KindBytes, raw: b}
	case WireStartGroup:
		var msg Message
		msg, err = d.decodeGroup(num)
		if err != nil {
			return Field{}, wrapWithField(err, num)
		}
		f.Value = Value{kind: KindMessage, msg: msg}
	case WireEndGroup:
		// No payload. The caller decides whether it closes a group.
	}
	if err != nil {
		return Field{}, wrapWithField(newDecodeError(err, start), num)
	}
	return f, nil
}

func (d *Decoder) decodeBytes() ([]byte, error) {
	b, err := decodeLen(d.src, d.cfg.MaxLength)
	if err != nil {
		return nil, err
	}
	if d.cfg.CopyBytes && aliasing(d.src) {
		b = bytes.Clone(b)
	}
	return b, nil
}

func (d *Decoder) decodeGroup(num FieldNumber) (Message, error) {
	if d.cfg.MaxDepth > 0 && d.depth >= d.cfg.MaxDepth {
		return nil, newDecodeError(fmt.Errorf("%w: %d", ErrMaxDepthExceeded, d.cfg.MaxDepth), d.src.Offset())
	}
	d.depth++
	defer func() { d.depth-- }()

	logger.V(6).Info("enter group", "field", uint64(num), "depth", d.depth)
	msg, err := d.decodeMessage(num, true)
	if err == nil {
		logger.V(6).Info("leave group", "field", uint64(num), "fields", len(msg))
	}
	return msg, err
}

// SkipField consumes a payload without keeping it. Groups are walked so
// their end tag is validated. Errors carry the offset of the field's tag,
// as DecodeField reports them.
func (d *Decoder) SkipField(num FieldNumber, wt WireType) error {
	start := d.src.Offset() - int64(VarintSize(uint64(PackTag(num, wt))))
	if start < 0 {
		start = 0
	}
	var err error
	switch wt {
	case WireVarint:
		err = SkipVarint(d.src)
	case WireFixed64:
		_, err = d.src.Next(Fixed64Size)
	case WireFixed32:
		_, err = d.src.Next(Fixed32Size)
	case WireBytes:
		_, err = decodeLen(d.src, d.cfg.MaxLength)
	case WireStartGroup:
		_, err = d.decodeGroup(num)
	case WireEndGroup:
		err = fmt.Errorf("%w: field %d", ErrUnexpectedGroupEnd, num)
	default:
		err = fmt.Errorf("%w: %d", ErrInvalidWireType, uint8(wt))
	}
	if err != nil {
		return wrapWithField(newDecodeError(err, start), num)
	}
	return nil
}
