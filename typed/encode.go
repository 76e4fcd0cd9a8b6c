package typed

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/anirudhraja/protoraw/schema"
	"github.com/anirudhraja/protoraw/wire"
)

// Encoder builds raw fields from named values.
type Encoder struct {
	resolver Resolver
	cfg      wire.Config
}

// NewEncoder creates an encoder resolving nested types through res. cfg.MaxDepth bounds
// how deeply nested values may go.
func NewEncoder(res Resolver, cfg wire.Config) *Encoder {
	return &Encoder{resolver: res, cfg: cfg}
}

// Encode builds the fields of msg from data with the global wire configuration.
func Encode(data map[string]interface{}, msg *schema.Message, res Resolver) (wire.Message, error) {
	return NewEncoder(res, wire.DefaultConfig()).Encode(data, msg)
}

// Marshal encodes data as msg straight to bytes.
func (e *Encoder) Marshal(data map[string]interface{}, msg *schema.Message) ([]byte, error) {
	fields, err := e.Encode(data, msg)
	if err != nil {
		return nil, err
	}
	enc := wire.NewEncoder(len(fields) * 8)
	if err := enc.EncodeMessage(fields); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// Encode builds the fields of msg from data. Keys may be declared or JSON
// field names. Fields are emitted in field-number order; unknown keys and nil
// values are skipped.
func (e *Encoder) Encode(data map[string]interface{}, msg *schema.Message) (wire.Message, error) {
	return e.encodeMessage(data, msg, 0)
}

func (e *Encoder) encodeMessage(data map[string]interface{}, msg *schema.Message, depth int) (wire.Message, error) {
	if err := checkDepth(e.cfg, depth); err != nil {
		return nil, fmt.Errorf("failed to encode message %s: %w", msg.Name, err)
	}

	// To iterate over data in a sorted manner by field number, collect valid fields first.
	type fieldEntry struct {
		value interface{}
		field *schema.Field
	}
	var entries []fieldEntry
	for name, value := range data {
		field := msg.FieldByName(name)
		if field == nil {
			logger.V(4).Info("skipping unknown field", "message", msg.FullName, "field", name)
			continue
		}
		if value == nil {
			continue
		}
		entries = append(entries, fieldEntry{value: value, field: field})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].field.Number < entries[j].field.Number
	})

	var out wire.Message
	for _, entry := range entries {
		field := entry.field
		var err error
		switch {
		case field.Type.Kind == schema.KindMap:
			out, err = e.encodeMap(out, entry.value, field, depth)
		case field.Label == schema.LabelRepeated:
			out, err = e.encodeRepeated(out, entry.value, field, msg.Syntax, depth)
		default:
			var f wire.Field
			f, err = e.encodeValue(wire.FieldNumber(field.Number), &field.Type, entry.value, depth)
			out = append(out, f)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", field.Name, err)
		}
	}
	return out, nil
}

// encodeValue builds one field record of type ft.
func (e *Encoder) encodeValue(num wire.FieldNumber, ft *schema.FieldType, value interface{}, depth int) (wire.Field, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		v, err := scalarValue(ft.PrimitiveType, value)
		if err != nil {
			return wire.Field{}, err
		}
		return wire.Field{Number: num, Value: v, WireType: scalarWireType(ft.PrimitiveType)}, nil

	case schema.KindEnum:
		n, err := e.enumNumber(ft.EnumType, value)
		if err != nil {
			return wire.Field{}, err
		}
		return wire.Field{Number: num, Value: wire.ValueOfInt64(int64(n)), WireType: wire.WireVarint}, nil

	case schema.KindMessage:
		// If it's already bytes, encode directly
		if raw, ok := value.([]byte); ok {
			return wire.Field{Number: num, Value: wire.ValueOfBytes(raw), WireType: wire.WireBytes}, nil
		}
		nested, err := e.encodeNested(ft.MessageType, value, depth)
		if err != nil {
			return wire.Field{}, err
		}
		return wire.Field{Number: num, Value: wire.ValueOfMessage(nested...), WireType: wire.WireBytes}, nil

	case schema.KindGroup:
		nested, err := e.encodeNested(ft.MessageType, value, depth)
		if err != nil {
			return wire.Field{}, err
		}
		return wire.Field{Number: num, Value: wire.ValueOfMessage(nested...), WireType: wire.WireStartGroup}, nil

	default:
		return wire.Field{}, fmt.Errorf("unsupported field type: %s", ft.Kind)
	}
}

func (e *Encoder) encodeNested(messageType string, value interface{}, depth int) (wire.Message, error) {
	data, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("message value must be map[string]interface{}, got %T", value)
	}
	msg, err := e.resolver.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("failed to get message schema for %s: %w", messageType, err)
	}
	return e.encodeMessage(data, msg, depth+1)
}

// encodeRepeated appends one record per element, or a single packed record.
func (e *Encoder) encodeRepeated(out wire.Message, value interface{}, field *schema.Field, syntax string, depth int) (wire.Message, error) {
	elems, err := toSlice(value)
	if err != nil {
		return nil, err
	}
	num := wire.FieldNumber(field.Number)

	if field.IsPacked(syntax) {
		if len(elems) == 0 {
			return out, nil
		}
		var payload []byte
		for i, elem := range elems {
			f, err := e.encodeValue(num, &field.Type, elem, depth)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			payload = appendPacked(payload, f.Value)
		}
		return append(out, wire.Field{Number: num, Value: wire.ValueOfBytes(payload), WireType: wire.WireBytes}), nil
	}

	for i, elem := range elems {
		f, err := e.encodeValue(num, &field.Type, elem, depth)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// appendPacked appends the untagged payload of a scalar value.
func appendPacked(b []byte, v wire.Value) []byte {
	switch v.Kind() {
	case wire.KindFixed32:
		u, _ := v.AsUint64()
		return wire.AppendFixed32(b, uint32(u))
	case wire.KindFloat32:
		f, _ := v.AsFloat32()
		return wire.AppendFixed32(b, math.Float32bits(f))
	case wire.KindFixed64:
		u, _ := v.AsUint64()
		return wire.AppendFixed64(b, u)
	case wire.KindFloat64:
		f, _ := v.AsFloat64()
		return wire.AppendFixed64(b, math.Float64bits(f))
	default:
		u, _ := v.AsUint64()
		return wire.AppendVarint(b, u)
	}
}

// encodeMap appends one entry message per key, ordered by key for stable output.
func (e *Encoder) encodeMap(out wire.Message, value interface{}, field *schema.Field, depth int) (wire.Message, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("unsupported map type: %T", value)
	}

	type mapEntry struct {
		sortKey string
		key     interface{}
		value   interface{}
	}
	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		entries = append(entries, mapEntry{sortKey: fmt.Sprint(k), key: k, value: iter.Value().Interface()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })

	num := wire.FieldNumber(field.Number)
	for _, entry := range entries {
		keyField, err := e.encodeValue(1, field.Type.MapKey, entry.key, depth+1)
		if err != nil {
			return nil, fmt.Errorf("map key %s: %w", entry.sortKey, err)
		}
		fields := wire.Message{keyField}
		if entry.value != nil {
			valueField, err := e.encodeValue(2, field.Type.MapValue, entry.value, depth+1)
			if err != nil {
				return nil, fmt.Errorf("map value for key %s: %w", entry.sortKey, err)
			}
			fields = append(fields, valueField)
		}
		out = append(out, wire.Field{Number: num, Value: wire.ValueOfMessage(fields...), WireType: wire.WireBytes})
	}
	return out, nil
}

// scalarValue converts value to the raw representation of pt.
func scalarValue(pt schema.PrimitiveType, value interface{}) (wire.Value, error) {
	switch pt {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		i, err := coerceToInt64(value)
		if err != nil {
			return wire.Value{}, err
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return wire.Value{}, fmt.Errorf("value %d overflows %s", i, pt)
		}
		switch pt {
		case schema.TypeSint32:
			return wire.ValueOfSint64(i), nil
		case schema.TypeSfixed32:
			return wire.ValueOfFixed32(uint32(int32(i))), nil
		}
		return wire.ValueOfInt64(i), nil
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		i, err := coerceToInt64(value)
		if err != nil {
			return wire.Value{}, err
		}
		switch pt {
		case schema.TypeSint64:
			return wire.ValueOfSint64(i), nil
		case schema.TypeSfixed64:
			return wire.ValueOfFixed64(uint64(i)), nil
		}
		return wire.ValueOfInt64(i), nil
	case schema.TypeUint32, schema.TypeFixed32:
		u, err := coerceToUint64(value)
		if err != nil {
			return wire.Value{}, err
		}
		if u > math.MaxUint32 {
			return wire.Value{}, fmt.Errorf("value %d overflows %s", u, pt)
		}
		if pt == schema.TypeFixed32 {
			return wire.ValueOfFixed32(uint32(u)), nil
		}
		return wire.ValueOfUint64(u), nil
	case schema.TypeUint64, schema.TypeFixed64:
		u, err := coerceToUint64(value)
		if err != nil {
			return wire.Value{}, err
		}
		if pt == schema.TypeFixed64 {
			return wire.ValueOfFixed64(u), nil
		}
		return wire.ValueOfUint64(u), nil
	case schema.TypeBool:
		b, err := coerceToBool(value)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.ValueOfBool(b), nil
	case schema.TypeFloat:
		f, err := coerceToFloat64(value)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.ValueOfFloat32(float32(f)), nil
	case schema.TypeDouble:
		f, err := coerceToFloat64(value)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.ValueOfFloat64(f), nil
	case schema.TypeString:
		s, err := coerceToString(value)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.ValueOfString(s), nil
	case schema.TypeBytes:
		b, err := coerceToBytes(value)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.ValueOfBytes(b), nil
	default:
		return wire.Value{}, fmt.Errorf("unsupported primitive type: %s", pt)
	}
}

// enumNumber accepts a declared value name or a number.
func (e *Encoder) enumNumber(enumType string, value interface{}) (int32, error) {
	if name, ok := value.(string); ok {
		enum, err := e.resolver.GetEnum(enumType)
		if err != nil {
			return 0, err
		}
		if v := enum.ValueByName(name); v != nil {
			return v.Number, nil
		}
		return 0, fmt.Errorf("%w: %s has no value %q", ErrUnknownEnumValue, enumType, name)
	}
	i, err := coerceToInt64(value)
	if err != nil {
		return 0, err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, fmt.Errorf("enum value %d overflows int32", i)
	}
	return int32(i), nil
}

// toSlice converts any slice value to []interface{}.
func toSlice(value interface{}) ([]interface{}, error) {
	if s, ok := value.([]interface{}); ok {
		return s, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, fmt.Errorf("repeated field value must be a slice, got %T", value)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
