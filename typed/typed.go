// Package typed interprets raw wire fields through a .proto schema and builds
// raw fields from named values.
package typed

import (
	"errors"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"

	"github.com/anirudhraja/protoraw/schema"
	"github.com/anirudhraja/protoraw/wire"
)

var (
	// ErrWireTypeMismatch is returned when a field arrives with a wire type its declared type cannot carry.
	ErrWireTypeMismatch = errors.New("protoraw: wire type does not match declared field type")
	// ErrUnknownEnumValue is returned when encoding an enum name the schema does not declare.
	ErrUnknownEnumValue = errors.New("protoraw: unknown enum value")
)

// Resolver looks up message and enum definitions by name. *registry.Registry implements it.
type Resolver interface {
	GetMessage(name string) (*schema.Message, error)
	GetEnum(name string) (*schema.Enum, error)
}

// Options tune how decoded values are presented.
type Options struct {
	// UseJSONNames keys results by json_name instead of the declared field name.
	UseJSONNames bool
	// EnumsAsNumbers returns enum values as int32 instead of their names.
	EnumsAsNumbers bool
}

var logger logr.Logger

func init() {
	logger = klog.NewKlogr().WithName("protoraw.typed")
}

// SetLogger sets the logger used by the typed package.
func SetLogger(l logr.Logger) {
	logger = l
}

// scalarWireType returns the wire type a scalar of type pt is written with.
func scalarWireType(pt schema.PrimitiveType) wire.WireType {
	switch pt {
	case schema.TypeString, schema.TypeBytes:
		return wire.WireBytes
	case schema.TypeFloat, schema.TypeFixed32, schema.TypeSfixed32:
		return wire.WireFixed32
	case schema.TypeDouble, schema.TypeFixed64, schema.TypeSfixed64:
		return wire.WireFixed64
	default:
		return wire.WireVarint
	}
}

// packable reports whether repeated values of ft may arrive packed.
func packable(ft *schema.FieldType) bool {
	switch ft.Kind {
	case schema.KindEnum:
		return true
	case schema.KindPrimitive:
		return schema.IsPackedType(ft.PrimitiveType)
	}
	return false
}

func fieldKey(f *schema.Field, opts Options) string {
	if opts.UseJSONNames && f.JsonName != "" {
		return f.JsonName
	}
	return f.Name
}

// nestedConfig returns cfg with MaxDepth reduced by the levels already entered.
func nestedConfig(cfg wire.Config, depth int) wire.Config {
	if cfg.MaxDepth > 0 {
		cfg.MaxDepth = max(cfg.MaxDepth-depth, 1)
	}
	return cfg
}

func checkDepth(cfg wire.Config, depth int) error {
	if cfg.MaxDepth > 0 && depth > cfg.MaxDepth {
		return wire.ErrMaxDepthExceeded
	}
	return nil
}
