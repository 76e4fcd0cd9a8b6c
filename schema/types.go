package schema

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
	Services []*Service `json:"services"` // service definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "google/protobuf/timestamp.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message represents a protobuf message definition
type Message struct {
	Name        string     `json:"name"`         // "User"
	FullName    string     `json:"full_name"`    // "pkg.User"
	Fields      []*Field   `json:"fields"`       // message fields, oneof members included
	NestedTypes []*Message `json:"nested_types"` // nested messages, group bodies included
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
	Syntax      string     `json:"syntax"`       // syntax of the declaring file
}

// FieldByNumber looks a field up by its wire number.
func (m *Message) FieldByNumber(num int32) *Field {
	for _, f := range m.Fields {
		if f.Number == num {
			return f
		}
	}
	return nil
}

// FieldByName looks a field up by its declared or JSON name.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name || (f.JsonName != "" && f.JsonName == name) {
			return f
		}
	}
	return nil
}

// Field represents a message field
type Field struct {
	Name       string     `json:"name"`        // "user_name"
	Number     int32      `json:"number"`      // 1
	Label      FieldLabel `json:"label"`       // optional, required, repeated
	Type       FieldType  `json:"type"`        // field type information
	JsonName   string     `json:"json_name"`   // JSON field name
	OneofIndex int32      `json:"oneof_index"` // oneof group index (-1 if not in oneof)
	Packed     *bool      `json:"packed"`      // explicit [packed=...] option, nil if absent
}

// IsPacked reports whether a repeated field is written packed. proto3
// packs scalar numerics by default; proto2 only on request.
func (f *Field) IsPacked(syntax string) bool {
	if f.Label != LabelRepeated || f.Type.Kind == KindMessage || f.Type.Kind == KindGroup || f.Type.Kind == KindMap {
		return false
	}
	if f.Type.Kind == KindPrimitive && !IsPackedType(f.Type.PrimitiveType) {
		return false
	}
	if f.Packed != nil {
		return *f.Packed
	}
	return syntax != "proto2"
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "user_info"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map, group
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // resolved full name for message and group types
	EnumType      string        `json:"enum_type,omitempty"`      // resolved full name for enum types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
	KindGroup     TypeKind = "group" // proto2 group, encoded with start/end group tags
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var primitiveTypes = map[string]PrimitiveType{
	"double": TypeDouble, "float": TypeFloat,
	"int64": TypeInt64, "uint64": TypeUint64, "int32": TypeInt32, "uint32": TypeUint32,
	"fixed64": TypeFixed64, "fixed32": TypeFixed32, "sfixed32": TypeSfixed32, "sfixed64": TypeSfixed64,
	"sint32": TypeSint32, "sint64": TypeSint64,
	"bool": TypeBool, "string": TypeString, "bytes": TypeBytes,
}

// LookupPrimitive maps a .proto scalar type name to its PrimitiveType.
func LookupPrimitive(name string) (PrimitiveType, bool) {
	p, ok := primitiveTypes[name]
	return p, ok
}

var packedEligible = map[PrimitiveType]struct{}{
	TypeDouble:   {},
	TypeFloat:    {},
	TypeInt64:    {},
	TypeUint64:   {},
	TypeInt32:    {},
	TypeFixed64:  {},
	TypeFixed32:  {},
	TypeBool:     {},
	TypeUint32:   {},
	TypeSfixed32: {},
	TypeSfixed64: {},
	TypeSint32:   {},
	TypeSint64:   {},
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	_, ok := packedEligible[t]
	return ok
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "Status"
	FullName   string       `json:"full_name"`   // "pkg.Status"
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// ValueByNumber returns the first value declared with num.
func (e *Enum) ValueByNumber(num int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == num {
			return v
		}
	}
	return nil
}

// ValueByName returns the value declared as name.
func (e *Enum) ValueByName(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}

// Service represents a service definition
type Service struct {
	Name    string    `json:"name"`    // "UserService"
	Methods []*Method `json:"methods"` // service methods
}

// Method represents a service method
type Method struct {
	Name            string `json:"name"`             // "GetUser"
	InputType       string `json:"input_type"`       // "GetUserRequest"
	OutputType      string `json:"output_type"`      // "GetUserResponse"
	ClientStreaming bool   `json:"client_streaming"` // stream input
	ServerStreaming bool   `json:"server_streaming"` // stream output
}
