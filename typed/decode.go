package typed

import (
	"fmt"
	"math"

	"github.com/anirudhraja/protoraw/schema"
	"github.com/anirudhraja/protoraw/wire"
)

// Decoder interprets raw fields against message schemas.
type Decoder struct {
	resolver Resolver
	cfg      wire.Config
	opts     Options
}

// NewDecoder creates a decoder resolving nested types through res.
func NewDecoder(res Resolver, cfg wire.Config, opts Options) *Decoder {
	return &Decoder{resolver: res, cfg: cfg, opts: opts}
}

// Decode interprets fields as an instance of msg with the global wire configuration.
func Decode(fields wire.Message, msg *schema.Message, res Resolver) (map[string]interface{}, error) {
	return NewDecoder(res, wire.DefaultConfig(), Options{}).Decode(fields, msg)
}

// Unmarshal parses data and interprets it as an instance of msg.
func (d *Decoder) Unmarshal(data []byte, msg *schema.Message) (map[string]interface{}, error) {
	return d.unmarshal(data, msg, 0)
}

// Decode interprets already parsed fields as an instance of msg. Fields the
// schema does not declare are skipped. The last occurrence of a singular
// field wins; repeated fields accept packed and unpacked encodings alike.
func (d *Decoder) Decode(fields wire.Message, msg *schema.Message) (map[string]interface{}, error) {
	return d.decodeMessage(fields, msg, 0)
}

func (d *Decoder) unmarshal(data []byte, msg *schema.Message, depth int) (map[string]interface{}, error) {
	if err := checkDepth(d.cfg, depth); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", msg.Name, err)
	}
	fields, err := wire.NewDecoderWithConfig(data, nestedConfig(d.cfg, depth)).DecodeMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", msg.Name, err)
	}
	return d.decodeMessage(fields, msg, depth)
}

func (d *Decoder) decodeMessage(fields wire.Message, msg *schema.Message, depth int) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	for _, f := range fields {
		var field *schema.Field
		if f.Number <= math.MaxInt32 {
			field = msg.FieldByNumber(int32(f.Number))
		}
		if field == nil {
			// Unknown field - skip it
			logger.V(6).Info("skipping unknown field", "message", msg.FullName, "number", uint64(f.Number), "wireType", f.WireType.String())
			continue
		}
		key := fieldKey(field, d.opts)

		switch {
		case field.Type.Kind == schema.KindMap:
			k, v, err := d.decodeMapEntry(f, &field.Type, depth)
			if err != nil {
				return nil, fmt.Errorf("failed to decode map field %s: %w", field.Name, err)
			}
			entries, _ := result[key].(map[string]interface{})
			if entries == nil {
				entries = make(map[string]interface{})
				result[key] = entries
			}
			entries[k] = v

		case field.Label == schema.LabelRepeated:
			list, _ := result[key].([]interface{})
			if f.WireType == wire.WireBytes && packable(&field.Type) {
				values, err := d.decodePacked(f.Value, &field.Type)
				if err != nil {
					return nil, fmt.Errorf("failed to decode packed field %s: %w", field.Name, err)
				}
				list = append(list, values...)
			} else {
				v, err := d.decodeValue(f, &field.Type, depth)
				if err != nil {
					return nil, fmt.Errorf("failed to decode field %s: %w", field.Name, err)
				}
				list = append(list, v)
			}
			result[key] = list

		default:
			v, err := d.decodeValue(f, &field.Type, depth)
			if err != nil {
				return nil, fmt.Errorf("failed to decode field %s: %w", field.Name, err)
			}
			result[key] = v
		}
	}

	return result, nil
}

// decodeValue routes one field record to the decoder for its declared type.
func (d *Decoder) decodeValue(f wire.Field, ft *schema.FieldType, depth int) (interface{}, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return decodeScalar(f.Value, f.WireType, ft.PrimitiveType)

	case schema.KindEnum:
		if f.WireType != wire.WireVarint {
			return nil, fmt.Errorf("%w: enum carried as %s", ErrWireTypeMismatch, f.WireType)
		}
		n, err := f.Value.AsInt32()
		if err != nil {
			return nil, err
		}
		return d.enumValue(ft.EnumType, n), nil

	case schema.KindMessage:
		if f.WireType != wire.WireBytes {
			return nil, fmt.Errorf("%w: message carried as %s", ErrWireTypeMismatch, f.WireType)
		}
		raw, err := f.Value.AsBytes()
		if err != nil {
			return nil, err
		}
		msg, err := d.resolver.GetMessage(ft.MessageType)
		if err != nil {
			// Schema not found, return raw bytes
			return raw, nil
		}
		return d.unmarshal(raw, msg, depth+1)

	case schema.KindGroup:
		if f.WireType != wire.WireStartGroup {
			return nil, fmt.Errorf("%w: group carried as %s", ErrWireTypeMismatch, f.WireType)
		}
		msg, err := d.resolver.GetMessage(ft.MessageType)
		if err != nil {
			return nil, err
		}
		if err := checkDepth(d.cfg, depth+1); err != nil {
			return nil, err
		}
		return d.decodeMessage(f.Value.Fields(), msg, depth+1)

	default:
		return nil, fmt.Errorf("unsupported field type: %s", ft.Kind)
	}
}

// decodeScalar converts a raw value to the Go type of pt.
func decodeScalar(v wire.Value, wt wire.WireType, pt schema.PrimitiveType) (interface{}, error) {
	if want := scalarWireType(pt); wt != want {
		return nil, fmt.Errorf("%w: %s carried as %s", ErrWireTypeMismatch, pt, wt)
	}

	switch pt {
	case schema.TypeInt32, schema.TypeSfixed32:
		return v.AsInt32()
	case schema.TypeInt64, schema.TypeSfixed64:
		return v.AsInt64()
	case schema.TypeUint32, schema.TypeFixed32:
		u, err := v.AsUint64()
		return uint32(u), err
	case schema.TypeUint64, schema.TypeFixed64:
		return v.AsUint64()
	case schema.TypeSint32:
		return v.AsSint32()
	case schema.TypeSint64:
		return v.AsSint64()
	case schema.TypeBool:
		return v.AsBool()
	case schema.TypeFloat:
		return v.AsFloat32()
	case schema.TypeDouble:
		return v.AsFloat64()
	case schema.TypeString:
		return v.AsString()
	case schema.TypeBytes:
		return v.AsBytes()
	default:
		return nil, fmt.Errorf("unsupported primitive type: %s", pt)
	}
}

// decodePacked splits a packed payload into its elements.
func (d *Decoder) decodePacked(v wire.Value, ft *schema.FieldType) ([]interface{}, error) {
	raw, err := v.AsBytes()
	if err != nil {
		return nil, err
	}

	wt := wire.WireVarint
	if ft.Kind == schema.KindPrimitive {
		wt = scalarWireType(ft.PrimitiveType)
	}

	src := wire.NewBytesSource(raw)
	var values []interface{}
	for src.More() {
		var elem wire.Value
		switch wt {
		case wire.WireVarint:
			u, err := wire.DecodeVarint(src)
			if err != nil {
				return nil, err
			}
			elem = wire.ValueOfUint64(u)
		case wire.WireFixed32:
			u, err := wire.DecodeFixed32(src)
			if err != nil {
				return nil, err
			}
			elem = wire.ValueOfFixed32(u)
		case wire.WireFixed64:
			u, err := wire.DecodeFixed64(src)
			if err != nil {
				return nil, err
			}
			elem = wire.ValueOfFixed64(u)
		}

		if ft.Kind == schema.KindEnum {
			n, _ := elem.AsInt32()
			values = append(values, d.enumValue(ft.EnumType, n))
			continue
		}
		value, err := decodeScalar(elem, wt, ft.PrimitiveType)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// decodeMapEntry decodes one key/value entry of a map field.
func (d *Decoder) decodeMapEntry(f wire.Field, ft *schema.FieldType, depth int) (string, interface{}, error) {
	if f.WireType != wire.WireBytes {
		return "", nil, fmt.Errorf("%w: map entry carried as %s", ErrWireTypeMismatch, f.WireType)
	}
	raw, err := f.Value.AsBytes()
	if err != nil {
		return "", nil, err
	}
	if err := checkDepth(d.cfg, depth+1); err != nil {
		return "", nil, err
	}
	entry, err := wire.NewDecoderWithConfig(raw, nestedConfig(d.cfg, depth+1)).DecodeMessage()
	if err != nil {
		return "", nil, err
	}

	key, value := d.zeroValue(ft.MapKey), d.zeroValue(ft.MapValue)
	for _, ef := range entry {
		switch ef.Number {
		case 1: // Key field
			if key, err = d.decodeValue(ef, ft.MapKey, depth+1); err != nil {
				return "", nil, fmt.Errorf("failed to decode map key: %w", err)
			}
		case 2: // Value field
			if value, err = d.decodeValue(ef, ft.MapValue, depth+1); err != nil {
				return "", nil, fmt.Errorf("failed to decode map value: %w", err)
			}
		}
	}
	return fmt.Sprint(key), value, nil
}

// zeroValue is what a map entry holds for an omitted key or value.
func (d *Decoder) zeroValue(ft *schema.FieldType) interface{} {
	switch ft.Kind {
	case schema.KindEnum:
		return d.enumValue(ft.EnumType, 0)
	case schema.KindMessage, schema.KindGroup:
		return map[string]interface{}{}
	case schema.KindPrimitive:
		v, err := decodeScalar(zeroRaw(ft.PrimitiveType), scalarWireType(ft.PrimitiveType), ft.PrimitiveType)
		if err != nil {
			return nil
		}
		return v
	}
	return nil
}

func zeroRaw(pt schema.PrimitiveType) wire.Value {
	switch scalarWireType(pt) {
	case wire.WireFixed32:
		return wire.ValueOfFixed32(0)
	case wire.WireFixed64:
		return wire.ValueOfFixed64(0)
	case wire.WireBytes:
		if pt == schema.TypeBytes {
			return wire.ValueOfBytes([]byte{})
		}
		return wire.ValueOfString("")
	}
	return wire.ValueOfUint64(0)
}

// enumValue names n when the enum declares it. Unknown numbers are kept as int32.
func (d *Decoder) enumValue(enumType string, n int32) interface{} {
	if d.opts.EnumsAsNumbers {
		return n
	}
	enum, err := d.resolver.GetEnum(enumType)
	if err != nil {
		return n
	}
	if v := enum.ValueByNumber(n); v != nil {
		return v.Name
	}
	return n
}
