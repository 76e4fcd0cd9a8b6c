package wire

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeField_Inferred(t *testing.T) {
	tests := []struct {
		name     string
		num      FieldNumber
		value    Value
		expected []byte
	}{
		{"varint_150", 1, ValueOfUint64(150), []byte{0x08, 0x96, 0x01}},
		{"string", 2, ValueOfString("testing"), append([]byte{0x12, 0x07}, "testing"...)},
		{"bytes_empty", 3, ValueOfBytes(nil), []byte{0x1a, 0x00}},
		{"sint_minus_one", 4, ValueOfSint64(-1), []byte{0x20, 0x01}},
		{"bool", 5, ValueOfBool(true), []byte{0x28, 0x01}},
		{"double", 1, ValueOfFloat64(1), []byte{0x09, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f}},
		{"float", 1, ValueOfFloat32(1), []byte{0x0d, 0, 0, 0x80, 0x3f}},
		{"fixed32", 2, ValueOfFixed32(1), []byte{0x15, 1, 0, 0, 0}},
		{"nested", 3, ValueOfMessage(NewField(1, ValueOfUint64(150))), []byte{0x1a, 0x03, 0x08, 0x96, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeField(tt.num, tt.value)
			if err != nil {
				t.Fatalf("EncodeField failed: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("EncodeField(%d, %s) = % x, want % x", tt.num, tt.value.Kind(), got, tt.expected)
			}
		})
	}
}

func TestEncodeFieldAs_ValueMismatch(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		wt    WireType
	}{
		{"bytes_as_varint", ValueOfBytes([]byte("x")), WireVarint},
		{"varint_as_i64", ValueOfUint64(1), WireFixed64},
		{"double_as_i32", ValueOfFloat64(1), WireFixed32},
		{"varint_as_len", ValueOfUint64(1), WireBytes},
		{"string_as_group", ValueOfString("x"), WireStartGroup},
		{"value_on_end_group", ValueOfUint64(1), WireEndGroup},
		{"zero_value", Value{}, WireVarint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeFieldAs(1, tt.value, tt.wt)
			if !errors.Is(err, ErrValueMismatch) {
				t.Errorf("error = %v, want ErrValueMismatch", err)
			}
		})
	}

	if _, err := EncodeFieldAs(1, ValueOfUint64(1), 6); !errors.Is(err, ErrInvalidWireType) {
		t.Errorf("wire type 6: error = %v, want ErrInvalidWireType", err)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	fields := Message{
		NewField(1, ValueOfUint64(150)),
		NewField(2, ValueOfBytes([]byte("testing"))),
		NewField(3, ValueOfFloat64(3.14)),
	}

	data, err := EncodeMessage(fields)
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	want := []byte{0x08, 0x96, 0x01, 0x12, 0x07}
	want = append(want, "testing"...)
	want = protowire.AppendTag(want, 3, protowire.Fixed64Type)
	want = protowire.AppendFixed64(want, math.Float64bits(3.14))
	if !bytes.Equal(data, want) {
		t.Fatalf("encoded = % x, want % x", data, want)
	}

	decoded, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if !decoded.Equal(fields) {
		t.Fatalf("round trip mismatch:\n%s", spew.Sdump(decoded))
	}

	wantTypes := []WireType{WireVarint, WireBytes, WireFixed64}
	for i, f := range decoded {
		if f.WireType != wantTypes[i] {
			t.Errorf("field %d wire type = %s, want %s", f.Number, f.WireType, wantTypes[i])
		}
	}
	if f, _ := decoded[2].Value.AsFloat64(); f != 3.14 {
		t.Errorf("field 3 as double = %v, want 3.14", f)
	}
	if num, v := decoded[1].Pair(); num != 2 || v.Kind() != KindBytes {
		t.Errorf("Pair() = (%d, %s)", num, v.Kind())
	}
}

func TestMessage_PreservesOrderAndDuplicates(t *testing.T) {
	fields := Message{
		NewField(9, ValueOfUint64(1)),
		NewField(1, ValueOfUint64(2)),
		NewField(9, ValueOfUint64(3)),
		NewField(0, ValueOfUint64(4)),
	}
	data, err := EncodeMessage(fields)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(fields) {
		t.Fatalf("order not preserved:\n%s", spew.Sdump(decoded))
	}
	if f, ok := decoded.Get(9); !ok || f.Value.num != 3 {
		t.Errorf("Get(9) should return the last occurrence, got %v", f)
	}
	if all := decoded.All(9); len(all) != 2 {
		t.Errorf("All(9) returned %d fields, want 2", len(all))
	}
}

func TestDecodeMessage_Empty(t *testing.T) {
	m, err := DecodeMessage(nil)
	if err != nil {
		t.Fatalf("DecodeMessage(nil) failed: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected no fields, got %d", len(m))
	}
}

func TestGroupRoundTrip(t *testing.T) {
	inner := Message{
		NewField(1, ValueOfUint64(7)),
		NewField(2, ValueOfString("in group")),
		{Number: 3, Value: ValueOfMessage(NewField(1, ValueOfFixed32(9))), WireType: WireStartGroup},
	}
	fields := Message{
		NewField(1, ValueOfUint64(1)),
		{Number: 5, Value: ValueOfMessage(inner...), WireType: WireStartGroup},
		NewField(6, ValueOfUint64(2)),
	}

	data, err := EncodeMessage(fields)
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	// Same bytes as protowire's group helpers.
	var innerInner []byte
	innerInner = protowire.AppendTag(innerInner, 1, protowire.Fixed32Type)
	innerInner = protowire.AppendFixed32(innerInner, 9)
	var body []byte
	body = protowire.AppendTag(body, 1, protowire.VarintType)
	body = protowire.AppendVarint(body, 7)
	body = protowire.AppendTag(body, 2, protowire.BytesType)
	body = protowire.AppendString(body, "in group")
	body = protowire.AppendTag(body, 3, protowire.StartGroupType)
	body = protowire.AppendGroup(body, 3, innerInner)
	var want []byte
	want = protowire.AppendTag(want, 1, protowire.VarintType)
	want = protowire.AppendVarint(want, 1)
	want = protowire.AppendTag(want, 5, protowire.StartGroupType)
	want = protowire.AppendGroup(want, 5, body)
	want = protowire.AppendTag(want, 6, protowire.VarintType)
	want = protowire.AppendVarint(want, 2)
	if !bytes.Equal(data, want) {
		t.Fatalf("encoded = % x\nwant      % x", data, want)
	}

	decoded, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 top-level fields, got %d:\n%s", len(decoded), spew.Sdump(decoded))
	}
	group := decoded[1]
	if group.Number != 5 || group.WireType != WireStartGroup || group.Value.Kind() != KindMessage {
		t.Fatalf("unexpected group field: %v", group)
	}
	if !group.Value.Fields().Equal(inner) {
		t.Errorf("group contents mismatch:\n%s", spew.Sdump(group.Value.Fields()))
	}
	if !decoded.Equal(fields) {
		t.Errorf("round trip mismatch")
	}
}

func TestDecodeMessage_GroupErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() []byte
		want  error
	}{
		{
			name: "stray_end_group",
			build: func() []byte {
				b := AppendTag(nil, 1, WireVarint)
				b = AppendVarint(b, 1)
				return AppendTag(b, 5, WireEndGroup)
			},
			want: ErrUnexpectedGroupEnd,
		},
		{
			name: "unterminated_group",
			build: func() []byte {
				b := AppendTag(nil, 5, WireStartGroup)
				b = AppendTag(b, 1, WireVarint)
				return AppendVarint(b, 1)
			},
			want: ErrUnterminatedGroup,
		},
		{
			name: "mismatched_end_group",
			build: func() []byte {
				b := AppendTag(nil, 5, WireStartGroup)
				b = AppendTag(b, 1, WireVarint)
				b = AppendVarint(b, 1)
				return AppendTag(b, 6, WireEndGroup)
			},
			want: ErrMismatchedGroupEnd,
		},
		{
			name: "nested_unterminated",
			build: func() []byte {
				b := AppendTag(nil, 5, WireStartGroup)
				b = AppendTag(b, 6, WireStartGroup)
				return AppendTag(b, 6, WireEndGroup)
			},
			want: ErrUnterminatedGroup,
		},
		{
			name: "invalid_wire_type_in_group",
			build: func() []byte {
				b := AppendTag(nil, 5, WireStartGroup)
				return append(b, 0x0e)
			},
			want: ErrInvalidWireType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.build()
			_, err := DecodeMessage(data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}

			_, err = DecodeMessageFrom(NewReaderSource(bytes.NewReader(data)))
			if !errors.Is(err, tt.want) {
				t.Errorf("reader source: error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeFieldAs_StrayEndGroup(t *testing.T) {
	data, err := EncodeFieldAs(5, Value{}, WireEndGroup)
	if err != nil {
		t.Fatalf("EncodeFieldAs(EGROUP) failed: %v", err)
	}
	if !bytes.Equal(data, []byte{0x2c}) {
		t.Errorf("end group tag = % x, want 2c", data)
	}
	if _, err := DecodeMessage(data); !errors.Is(err, ErrUnexpectedGroupEnd) {
		t.Errorf("error = %v, want ErrUnexpectedGroupEnd", err)
	}

	f, err := DecodeField(NewBytesSource(data))
	if err != nil {
		t.Fatalf("DecodeField(EGROUP) failed: %v", err)
	}
	if f.WireType != WireEndGroup || f.Number != 5 || f.Value.IsValid() {
		t.Errorf("DecodeField(EGROUP) = %+v, want end-group sentinel", f)
	}
}

func TestDecodeMessage_Truncation(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"lone_continuation", []byte{0x80}},
		{"varint_payload_missing", []byte{0x08}},
		{"len_exceeds_remaining", []byte{0x12, 0x05, 'a', 'b'}},
		{"i64_short", []byte{0x09, 1, 2, 3}},
		{"i32_short", []byte{0x0d, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeMessage(tt.input); !errors.Is(err, ErrTruncatedInput) {
				t.Errorf("error = %v, want ErrTruncatedInput", err)
			}
		})
	}
}

func TestDecodeField_InvalidWireType(t *testing.T) {
	_, err := DecodeField(NewBytesSource([]byte{0x0e, 0x00}))
	if !errors.Is(err, ErrInvalidWireType) {
		t.Errorf("error = %v, want ErrInvalidWireType", err)
	}
	_, err = DecodeMessage([]byte{0x08, 0x01, 0x0f})
	if !errors.Is(err, ErrInvalidWireType) {
		t.Errorf("error = %v, want ErrInvalidWireType", err)
	}
}

func TestDecodeError_Context(t *testing.T) {
	// field 1 = 1, group 5 { field 2 = LEN claiming 9 bytes }
	b := AppendTag(nil, 1, WireVarint)
	b = AppendVarint(b, 1)
	b = AppendTag(b, 5, WireStartGroup)
	offset := len(b)
	b = AppendTag(b, 2, WireBytes)
	b = append(b, 0x09, 'x')

	_, err := DecodeMessage(b)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("expected ErrTruncatedInput, got %v", de.Err)
	}
	if de.Offset != int64(offset) {
		t.Errorf("offset = %d, want %d", de.Offset, offset)
	}
	if len(de.FieldPath) != 2 || de.FieldPath[0] != 5 || de.FieldPath[1] != 2 {
		t.Errorf("field path = %v, want [5 2]", de.FieldPath)
	}
	if !strings.Contains(err.Error(), "field path 5.2") {
		t.Errorf("error text missing path: %s", err)
	}
}

func TestDecoder_MaxDepth(t *testing.T) {
	nest := func(depth int) []byte {
		var b []byte
		for i := 0; i < depth; i++ {
			b = AppendTag(b, 1, WireStartGroup)
		}
		for i := 0; i < depth; i++ {
			b = AppendTag(b, 1, WireEndGroup)
		}
		return b
	}

	cfg := DefaultConfig()
	cfg.MaxDepth = 8
	if _, err := NewDecoderWithConfig(nest(8), cfg).DecodeMessage(); err != nil {
		t.Errorf("depth 8 rejected: %v", err)
	}
	_, err := NewDecoderWithConfig(nest(9), cfg).DecodeMessage()
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("depth 9: error = %v, want ErrMaxDepthExceeded", err)
	}

	cfg.MaxDepth = 0
	if _, err := NewDecoderWithConfig(nest(500), cfg).DecodeMessage(); err != nil {
		t.Errorf("unlimited depth rejected: %v", err)
	}
}

func TestValue_AsMessage(t *testing.T) {
	inner := Message{NewField(1, ValueOfString("x")), NewField(2, ValueOfSint64(-3))}
	data, err := EncodeMessage(Message{NewField(4, ValueOfMessage(inner...))})
	if err != nil {
		t.Fatal(err)
	}
	outer, err := DecodeMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if outer[0].Value.Kind() != KindBytes {
		t.Fatalf("LEN payload should decode as bytes, got %s", outer[0].Value.Kind())
	}
	nested, err := outer[0].Value.AsMessage()
	if err != nil {
		t.Fatalf("AsMessage failed: %v", err)
	}
	if !nested.Equal(inner) {
		t.Errorf("nested mismatch:\n%s", spew.Sdump(nested))
	}
	if v, _ := nested[1].Value.AsSint64(); v != -3 {
		t.Errorf("sint = %d, want -3", v)
	}
	if _, err := ValueOfUint64(1).AsMessage(); !errors.Is(err, ErrValueMismatch) {
		t.Errorf("varint AsMessage: error = %v, want ErrValueMismatch", err)
	}
}

func TestDecoder_ReaderSource(t *testing.T) {
	fields := Message{
		NewField(1, ValueOfUint64(150)),
		NewField(2, ValueOfString(strings.Repeat("stream", 20000))),
		NewField(3, ValueOfFixed64(42)),
	}
	data, err := EncodeMessage(fields)
	if err != nil {
		t.Fatal(err)
	}

	d := NewReaderDecoder(bytes.NewReader(data))
	decoded, err := d.DecodeMessage()
	if err != nil {
		t.Fatalf("DecodeMessage from reader failed: %v", err)
	}
	if !decoded.Equal(fields) {
		t.Errorf("reader decode mismatch")
	}
	if d.Offset() != int64(len(data)) {
		t.Errorf("offset = %d, want %d", d.Offset(), len(data))
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestDecoder_ReaderError(t *testing.T) {
	boom := errors.New("boom")
	src := NewReaderSource(&failingReader{data: []byte{0x08, 0x01}, err: boom})
	_, err := DecodeMessageFrom(src)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want read failure to surface", err)
	}
}

func TestSkipField(t *testing.T) {
	var b []byte
	b = AppendTag(b, 1, WireBytes)
	b = AppendString(b, "skip me")
	b = AppendTag(b, 2, WireStartGroup)
	b = AppendTag(b, 1, WireFixed32)
	b = AppendFixed32(b, 1)
	b = AppendTag(b, 2, WireEndGroup)
	b = AppendTag(b, 3, WireVarint)
	b = AppendVarint(b, 99)

	src := NewBytesSource(b)
	for i := 0; i < 2; i++ {
		num, wt, err := DecodeTag(src)
		if err != nil {
			t.Fatal(err)
		}
		if err := SkipField(src, num, wt); err != nil {
			t.Fatalf("SkipField(%d, %s) failed: %v", num, wt, err)
		}
	}
	f, err := DecodeField(src)
	if err != nil {
		t.Fatal(err)
	}
	if f.Number != 3 || f.Value.num != 99 {
		t.Errorf("after skipping, got %v", f)
	}
	if err := SkipField(NewBytesSource(nil), 4, WireEndGroup); !errors.Is(err, ErrUnexpectedGroupEnd) {
		t.Errorf("skipping an end group: error = %v", err)
	}
}

func TestSkipField_ErrorOffset(t *testing.T) {
	// field 1 = 1, field 2 = LEN claiming 5 bytes with only 2 present
	b := AppendVarint(AppendTag(nil, 1, WireVarint), 1)
	offset := len(b)
	b = AppendTag(b, 2, WireBytes)
	b = append(b, 0x05, 'a', 'b')

	_, decodeErr := DecodeMessage(b)

	src := NewBytesSource(b)
	if _, err := DecodeField(src); err != nil {
		t.Fatal(err)
	}
	num, wt, err := DecodeTag(src)
	if err != nil {
		t.Fatal(err)
	}
	skipErr := SkipField(src, num, wt)

	for name, err := range map[string]error{"decode": decodeErr, "skip": skipErr} {
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: expected *DecodeError, got %T: %v", name, err, err)
		}
		if !errors.Is(err, ErrTruncatedInput) {
			t.Errorf("%s: error = %v, want ErrTruncatedInput", name, err)
		}
		if de.Offset != int64(offset) {
			t.Errorf("%s: offset = %d, want %d", name, de.Offset, offset)
		}
	}
}

func TestFormat(t *testing.T) {
	fields := Message{
		NewField(1, ValueOfUint64(150)),
		NewField(2, ValueOfString("testing")),
		NewField(3, ValueOfMessage(NewField(1, ValueOfUint64(2)))),
		{Number: 4, Value: ValueOfMessage(NewField(7, ValueOfFixed32(1))), WireType: WireStartGroup},
		NewField(5, ValueOfBytes([]byte{0xff, 0x00})),
	}
	data, err := EncodeMessage(fields)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeMessage(data)
	if err != nil {
		t.Fatal(err)
	}

	want := `1: 150
2: "testing"
3 {
  1: 2
}
4 {
  7: 0x00000001
}
5: "\377\000"
`
	if got := Format(decoded); got != want {
		t.Errorf("Format mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if got := decoded[0].String(); got != "1: 150" {
		t.Errorf("Field.String() = %q", got)
	}
	if got := decoded[3].String(); got != "4 {\n  7: 0x00000001\n}" {
		t.Errorf("group Field.String() = %q", got)
	}
}

func TestFormatWithConfig(t *testing.T) {
	inner := AppendVarint(AppendTag(nil, 1, WireVarint), 2)
	fields := Message{NewField(1, ValueOfBytes(inner))}

	if got, want := FormatWithConfig(fields, DefaultConfig()), "1 {\n  1: 2\n}\n"; got != want {
		t.Errorf("default config: got %q, want %q", got, want)
	}
	if got, want := FormatWithConfig(fields, Config{MaxDepth: 1}), "1: \"\\b\\x02\"\n"; got != want {
		t.Errorf("MaxDepth 1: got %q, want %q", got, want)
	}
	if got := Format(fields); got != FormatWithConfig(fields, DefaultConfig()) {
		t.Errorf("Format and FormatWithConfig(DefaultConfig()) differ: %q", got)
	}
}

func TestEncoder_EncodeMessage(t *testing.T) {
	enc := NewEncoder(16)
	if err := enc.EncodeMessage(Message{NewField(1, ValueOfUint64(150))}); err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeMessage(Message{NewField(2, ValueOfString("a"))}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x08, 0x96, 0x01, 0x12, 0x01, 'a'}
	if !bytes.Equal(enc.Bytes(), want) {
		t.Fatalf("Bytes() = % x, want % x", enc.Bytes(), want)
	}

	bad := Message{NewField(3, ValueOfUint64(1)), {Number: 4, Value: ValueOfString("x"), WireType: WireVarint}}
	if err := enc.EncodeMessage(bad); !errors.Is(err, ErrValueMismatch) {
		t.Errorf("error = %v, want ErrValueMismatch", err)
	}
	if !bytes.Equal(enc.Bytes(), want) {
		t.Errorf("failed call changed the buffer: % x", enc.Bytes())
	}
}
