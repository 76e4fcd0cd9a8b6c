package typed

import (
	"fmt"

	"github.com/anirudhraja/protoraw/schema"
)

type testResolver struct {
	messages map[string]*schema.Message
	enums    map[string]*schema.Enum
}

func (r *testResolver) GetMessage(name string) (*schema.Message, error) {
	if m, ok := r.messages[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("message not found: %s", name)
}

func (r *testResolver) GetEnum(name string) (*schema.Enum, error) {
	if e, ok := r.enums[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("enum not found: %s", name)
}

func field(name string, num int32, ft schema.FieldType) *schema.Field {
	return &schema.Field{Name: name, Number: num, Label: schema.LabelOptional, Type: ft, OneofIndex: -1}
}

func repeated(f *schema.Field) *schema.Field {
	f.Label = schema.LabelRepeated
	return f
}

func prim(pt schema.PrimitiveType) schema.FieldType {
	return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt}
}

func msgType(name string) schema.FieldType {
	return schema.FieldType{Kind: schema.KindMessage, MessageType: name}
}

func enumType(name string) schema.FieldType {
	return schema.FieldType{Kind: schema.KindEnum, EnumType: name}
}

func newTestResolver() *testResolver {
	color := &schema.Enum{Name: "Color", FullName: "test.Color", Values: []*schema.EnumValue{
		{Name: "COLOR_UNSPECIFIED", Number: 0},
		{Name: "RED", Number: 1},
		{Name: "BLUE", Number: 2},
	}}

	point := &schema.Message{Name: "Point", FullName: "test.Point", Syntax: "proto3", Fields: []*schema.Field{
		field("x", 1, prim(schema.TypeInt32)),
		field("y", 2, prim(schema.TypeInt32)),
	}}

	scalars := &schema.Message{Name: "Scalars", FullName: "test.Scalars", Syntax: "proto3", Fields: []*schema.Field{
		field("i32", 1, prim(schema.TypeInt32)),
		field("s", 2, prim(schema.TypeString)),
		field("d", 3, prim(schema.TypeDouble)),
		field("f", 4, prim(schema.TypeFloat)),
		field("s64", 5, prim(schema.TypeSint64)),
		field("b", 6, prim(schema.TypeBool)),
		field("fx32", 7, prim(schema.TypeFixed32)),
		field("sf64", 8, prim(schema.TypeSfixed64)),
		field("raw", 9, prim(schema.TypeBytes)),
		field("u32", 10, prim(schema.TypeUint32)),
		field("sf32", 11, prim(schema.TypeSfixed32)),
		field("u64", 12, prim(schema.TypeUint64)),
		field("s32", 13, prim(schema.TypeSint32)),
	}}

	byID := field("by_id", 8, schema.FieldType{
		Kind:     schema.KindMap,
		MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32},
		MapValue: &schema.FieldType{Kind: schema.KindMessage, MessageType: "test.Point"},
	})
	byID.Label = schema.LabelRepeated
	byID.JsonName = "byId"
	labels := field("labels", 7, schema.FieldType{
		Kind:     schema.KindMap,
		MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
		MapValue: &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt64},
	})
	labels.Label = schema.LabelRepeated

	shape := &schema.Message{Name: "Shape", FullName: "test.Shape", Syntax: "proto3", Fields: []*schema.Field{
		field("name", 1, prim(schema.TypeString)),
		field("color", 2, enumType("test.Color")),
		field("origin", 3, msgType("test.Point")),
		repeated(field("points", 4, msgType("test.Point"))),
		repeated(field("ids", 5, prim(schema.TypeInt32))),
		repeated(field("colors", 6, enumType("test.Color"))),
		labels,
		byID,
		repeated(field("tags", 9, prim(schema.TypeString))),
		repeated(field("weights", 10, prim(schema.TypeDouble))),
	}}

	result := &schema.Message{Name: "Result", FullName: "test.Legacy.Result", Syntax: "proto2", Fields: []*schema.Field{
		field("url", 1, prim(schema.TypeString)),
	}}
	legacy := &schema.Message{Name: "Legacy", FullName: "test.Legacy", Syntax: "proto2", Fields: []*schema.Field{
		repeated(field("ids", 1, prim(schema.TypeInt32))),
		repeated(field("result", 2, schema.FieldType{Kind: schema.KindGroup, MessageType: "test.Legacy.Result"})),
	}, NestedTypes: []*schema.Message{result}}

	node := &schema.Message{Name: "Node", FullName: "test.Node", Syntax: "proto3", Fields: []*schema.Field{
		field("child", 1, msgType("test.Node")),
		field("value", 2, prim(schema.TypeInt32)),
	}}

	return &testResolver{
		messages: map[string]*schema.Message{
			point.FullName:   point,
			scalars.FullName: scalars,
			shape.FullName:   shape,
			legacy.FullName:  legacy,
			result.FullName:  result,
			node.FullName:    node,
		},
		enums: map[string]*schema.Enum{color.FullName: color},
	}
}
