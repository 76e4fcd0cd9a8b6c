package wire

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Format renders fields in the style of `protoc --decode_raw`. LEN payloads
// that parse as a message are shown nested; printable UTF-8 is quoted;
// anything else is quoted with escapes.
func Format(m Message) string {
	return FormatWithConfig(m, DefaultConfig())
}

// FormatWithConfig is Format with cfg bounding how deep LEN payloads are
// checked for nested messages and how long their inner fields may be.
func FormatWithConfig(m Message, cfg Config) string {
	var sb strings.Builder
	formatMessage(&sb, m, 0, cfg)
	return sb.String()
}

// String renders one field. Scalars fit on one line; groups and
// submessages span several, indented as in Format.
func (f Field) String() string {
	var sb strings.Builder
	formatField(&sb, f, 0, Config{MaxDepth: 1})
	return strings.TrimRight(sb.String(), "\n")
}

func formatMessage(sb *strings.Builder, m Message, indent int, cfg Config) {
	for _, f := range m {
		formatField(sb, f, indent, cfg)
	}
}

func formatField(sb *strings.Builder, f Field, indent int, cfg Config) {
	pad := strings.Repeat("  ", indent)
	v := f.Value
	switch f.WireType {
	case WireVarint:
		fmt.Fprintf(sb, "%s%d: %d\n", pad, f.Number, v.num)
	case WireFixed32:
		fmt.Fprintf(sb, "%s%d: 0x%08x\n", pad, f.Number, uint32(v.num))
	case WireFixed64:
		fmt.Fprintf(sb, "%s%d: 0x%016x\n", pad, f.Number, v.num)
	case WireStartGroup:
		fmt.Fprintf(sb, "%s%d {\n", pad, f.Number)
		formatMessage(sb, v.msg, indent+1, cfg)
		fmt.Fprintf(sb, "%s}\n", pad)
	case WireEndGroup:
		fmt.Fprintf(sb, "%s%d: END_GROUP\n", pad, f.Number)
	case WireBytes:
		if v.kind == KindMessage {
			fmt.Fprintf(sb, "%s%d {\n", pad, f.Number)
			formatMessage(sb, v.msg, indent+1, cfg)
			fmt.Fprintf(sb, "%s}\n", pad)
			return
		}
		raw, _ := v.AsBytes()
		if nested, ok := nestedMessage(raw, indent, cfg); ok {
			fmt.Fprintf(sb, "%s%d {\n", pad, f.Number)
			formatMessage(sb, nested, indent+1, cfg)
			fmt.Fprintf(sb, "%s}\n", pad)
			return
		}
		fmt.Fprintf(sb, "%s%d: %s\n", pad, f.Number, quoteBytes(raw))
	}
}

// nestedMessage guesses whether raw is an encoded submessage. Printable
// text is never treated as one.
func nestedMessage(raw []byte, indent int, cfg Config) (Message, bool) {
	if len(raw) == 0 || isPrintable(raw) {
		return nil, false
	}
	if cfg.MaxDepth > 0 && indent+1 >= cfg.MaxDepth {
		return nil, false
	}
	m, err := NewDecoderWithConfig(raw, cfg).DecodeMessage()
	if err != nil || len(m) == 0 {
		return nil, false
	}
	return m, true
}

func isPrintable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func quoteBytes(b []byte) string {
	if utf8.Valid(b) {
		return strconv.Quote(string(b))
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "\\%03o", c)
	}
	sb.WriteByte('"')
	return sb.String()
}
