package protoraw

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode"

	"github.com/anirudhraja/protoraw/registry"
	"github.com/anirudhraja/protoraw/typed"
	"github.com/anirudhraja/protoraw/wire"
)

// ===== RAW WIRE API =====

// Protoraw decodes and encodes protobuf wire data, with or without a schema.
type Protoraw struct {
	registry *registry.Registry
	cfg      wire.Config
	opts     typed.Options
}

// New creates a new Protoraw instance. protoDirs are searched, in order, for
// .proto files and their imports.
func New(protoDirs []string) *Protoraw {
	return &Protoraw{
		registry: registry.NewRegistry(protoDirs),
		cfg:      wire.DefaultConfig(),
	}
}

// SetConfig replaces the decoder limits used by this instance.
func (p *Protoraw) SetConfig(cfg wire.Config) { p.cfg = cfg }

// SetOptions replaces the presentation options of schema-aware decoding.
func (p *Protoraw) SetOptions(opts typed.Options) { p.opts = opts }

// Decode parses data into raw fields without a schema.
func (p *Protoraw) Decode(data []byte) (wire.Message, error) {
	return wire.NewDecoderWithConfig(data, p.cfg).DecodeMessage()
}

// DecodeReader parses fields from r until EOF without buffering the whole input.
func (p *Protoraw) DecodeReader(r io.Reader) (wire.Message, error) {
	return wire.NewSourceDecoder(wire.NewReaderSource(r), p.cfg).DecodeMessage()
}

// Encode serialises raw fields in order, honouring each field's wire type.
func (p *Protoraw) Encode(fields wire.Message) ([]byte, error) {
	enc := wire.NewEncoder(len(fields) * 8)
	if err := enc.EncodeMessage(fields); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// ===== SCHEMA-AWARE API =====

// LoadSchemaFromFile loads a .proto file, relative to the proto directories, and its imports.
func (p *Protoraw) LoadSchemaFromFile(protoFile string) error {
	return p.registry.LoadSchemaFromFile(protoFile)
}

// LoadSchema loads a single .proto file or every .proto file below a directory.
func (p *Protoraw) LoadSchema(path string) error {
	return p.registry.LoadSchema(path)
}

// Parse decodes protobuf bytes as messageType into named values.
func (p *Protoraw) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}
	return typed.NewDecoder(p.registry, p.cfg, p.opts).Unmarshal(data, msg)
}

// ParseFields interprets already decoded fields as messageType.
func (p *Protoraw) ParseFields(fields wire.Message, messageType string) (map[string]interface{}, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}
	return typed.NewDecoder(p.registry, p.cfg, p.opts).Decode(fields, msg)
}

// Marshal encodes a map to protobuf bytes using schema information
func (p *Protoraw) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}
	return typed.NewEncoder(p.registry, p.cfg).Marshal(data, msg)
}

// Unmarshal decodes protobuf bytes as messageType into the struct v points to.
// Struct fields match by json tag, then by snake_case name, then by Go name.
func (p *Protoraw) Unmarshal(data []byte, messageType string, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	result, err := p.Parse(data, messageType)
	if err != nil {
		return err
	}
	return p.mapToStruct(result, rv.Elem())
}

// mapToStruct maps parsed result to struct fields
func (p *Protoraw) mapToStruct(data map[string]interface{}, rv reflect.Value) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a struct, got %s", rv.Kind())
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		value, ok := lookupField(data, field)
		if !ok {
			continue
		}
		if err := p.setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set field %s: %v", field.Name, err)
		}
	}
	return nil
}

func lookupField(data map[string]interface{}, field reflect.StructField) (interface{}, bool) {
	if tag, ok := field.Tag.Lookup("json"); ok {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			if v, ok := data[name]; ok {
				return v, true
			}
		}
	}
	if v, ok := data[toSnakeCase(field.Name)]; ok {
		return v, true
	}
	v, ok := data[field.Name]
	return v, ok
}

// setFieldValue sets a struct field with type conversion
func (p *Protoraw) setFieldValue(fieldValue reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}

	switch {
	case fieldValue.Kind() == reflect.Struct && sourceValue.Kind() == reflect.Map:
		nested, ok := value.(map[string]interface{})
		if !ok {
			break
		}
		return p.mapToStruct(nested, fieldValue)

	case fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct && sourceValue.Kind() == reflect.Map:
		nested, ok := value.(map[string]interface{})
		if !ok {
			break
		}
		ptr := reflect.New(fieldValue.Type().Elem())
		if err := p.mapToStruct(nested, ptr.Elem()); err != nil {
			return err
		}
		fieldValue.Set(ptr)
		return nil

	case fieldValue.Kind() == reflect.Slice && sourceValue.Kind() == reflect.Slice:
		out := reflect.MakeSlice(fieldValue.Type(), sourceValue.Len(), sourceValue.Len())
		for i := 0; i < sourceValue.Len(); i++ {
			if err := p.setFieldValue(out.Index(i), sourceValue.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %v", i, err)
			}
		}
		fieldValue.Set(out)
		return nil
	}

	if sourceValue.Type().ConvertibleTo(fieldValue.Type()) && sourceValue.Kind() != reflect.String {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

// toSnakeCase converts a Go field name to its snake_case form, keeping
// acronyms together: UserID -> user_id, XMLParser -> xml_parser.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ===== REGISTRY ACCESS =====

func (p *Protoraw) GetRegistry() *registry.Registry { return p.registry }
func (p *Protoraw) ListMessages() []string          { return p.registry.ListMessages() }
func (p *Protoraw) ListEnums() []string             { return p.registry.ListEnums() }
func (p *Protoraw) ListServices() []string          { return p.registry.ListServices() }
