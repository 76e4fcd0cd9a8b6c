package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/anirudhraja/protoraw/wire"
)

// jsonField is the JSON shape of one raw field, shared by `decode --format
// json` and `encode`. Value holds a number for VARINT/I32/I64 and a string
// for UTF-8 LEN payloads; other LEN payloads use Bytes (base64). Fields holds
// a group body, or a LEN submessage on input.
type jsonField struct {
	Number   uint64          `json:"number"`
	WireType string          `json:"wire_type"`
	Value    json.RawMessage `json:"value,omitempty"`
	Bytes    []byte          `json:"bytes,omitempty"`
	Fields   []jsonField     `json:"fields,omitempty"`
}

var wireTypeNames = map[string]wire.WireType{
	"VARINT": wire.WireVarint,
	"I64":    wire.WireFixed64,
	"LEN":    wire.WireBytes,
	"SGROUP": wire.WireStartGroup,
	"EGROUP": wire.WireEndGroup,
	"I32":    wire.WireFixed32,
}

func toJSONFields(m wire.Message) []jsonField {
	out := make([]jsonField, 0, len(m))
	for _, f := range m {
		jf := jsonField{Number: uint64(f.Number), WireType: f.WireType.String()}
		switch f.WireType {
		case wire.WireVarint, wire.WireFixed32, wire.WireFixed64:
			n, _ := f.Value.AsUint64()
			jf.Value = json.RawMessage(strconv.FormatUint(n, 10))
		case wire.WireBytes:
			raw, _ := f.Value.AsBytes()
			if utf8.Valid(raw) {
				s, _ := json.Marshal(string(raw))
				jf.Value = s
			} else {
				jf.Bytes = raw
			}
		case wire.WireStartGroup:
			jf.Fields = toJSONFields(f.Value.Fields())
		}
		out = append(out, jf)
	}
	return out
}

func fromJSONFields(in []jsonField) (wire.Message, error) {
	out := make(wire.Message, 0, len(in))
	for i, jf := range in {
		f, err := fromJSONField(jf)
		if err != nil {
			return nil, fmt.Errorf("field #%d (number %d): %w", i, jf.Number, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func fromJSONField(jf jsonField) (wire.Field, error) {
	wt, ok := wireTypeNames[strings.ToUpper(jf.WireType)]
	if !ok {
		return wire.Field{}, fmt.Errorf("unknown wire_type %q", jf.WireType)
	}
	if jf.Number > uint64(wire.MaxFieldNumber) {
		return wire.Field{}, fmt.Errorf("field number %d out of range", jf.Number)
	}
	f := wire.Field{Number: wire.FieldNumber(jf.Number), WireType: wt}

	switch wt {
	case wire.WireVarint:
		n, err := jsonInteger(jf.Value)
		if err != nil {
			return wire.Field{}, err
		}
		f.Value = wire.ValueOfUint64(n)

	case wire.WireFixed64:
		num, err := jsonNumber(jf.Value)
		if err != nil {
			return wire.Field{}, err
		}
		if isFloatLiteral(num) {
			v, err := num.Float64()
			if err != nil {
				return wire.Field{}, err
			}
			f.Value = wire.ValueOfFloat64(v)
			break
		}
		n, err := jsonInteger(jf.Value)
		if err != nil {
			return wire.Field{}, err
		}
		f.Value = wire.ValueOfFixed64(n)

	case wire.WireFixed32:
		num, err := jsonNumber(jf.Value)
		if err != nil {
			return wire.Field{}, err
		}
		if isFloatLiteral(num) {
			v, err := strconv.ParseFloat(num.String(), 32)
			if err != nil {
				return wire.Field{}, err
			}
			f.Value = wire.ValueOfFloat32(float32(v))
			break
		}
		n, err := jsonInteger(jf.Value)
		if err != nil {
			return wire.Field{}, err
		}
		if int64(n) < math.MinInt32 || (int64(n) >= 0 && n > math.MaxUint32) {
			return wire.Field{}, fmt.Errorf("value %d out of range for I32", int64(n))
		}
		f.Value = wire.ValueOfFixed32(uint32(n))

	case wire.WireBytes:
		switch {
		case jf.Fields != nil:
			nested, err := fromJSONFields(jf.Fields)
			if err != nil {
				return wire.Field{}, err
			}
			f.Value = wire.ValueOfMessage(nested...)
		case jf.Bytes != nil:
			f.Value = wire.ValueOfBytes(jf.Bytes)
		case len(jf.Value) > 0:
			var s string
			if err := json.Unmarshal(jf.Value, &s); err != nil {
				return wire.Field{}, fmt.Errorf("LEN value must be a string: %w", err)
			}
			f.Value = wire.ValueOfString(s)
		default:
			f.Value = wire.ValueOfBytes(nil)
		}

	case wire.WireStartGroup:
		nested, err := fromJSONFields(jf.Fields)
		if err != nil {
			return wire.Field{}, err
		}
		f.Value = wire.ValueOfMessage(nested...)
	}
	return f, nil
}

func jsonNumber(raw json.RawMessage) (json.Number, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing value")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("value must be a number: %w", err)
	}
	return n, nil
}

func isFloatLiteral(n json.Number) bool {
	return strings.ContainsAny(n.String(), ".eE")
}

// jsonInteger accepts any integer literal in [-2^63, 2^64). Negative values
// are stored in two's complement, as protobuf does for int32/int64.
func jsonInteger(raw json.RawMessage) (uint64, error) {
	num, err := jsonNumber(raw)
	if err != nil {
		return 0, err
	}
	s := num.String()
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %s: %w", s, err)
		}
		return uint64(v), nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %s: %w", s, err)
	}
	return v, nil
}
