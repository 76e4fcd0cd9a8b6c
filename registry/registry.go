package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
	"k8s.io/klog/v2"

	"github.com/anirudhraja/protoraw/schema"
)

var logger logr.Logger

func init() {
	logger = klog.NewKlogr().WithName("protoraw.registry")
}

// SetLogger sets the logger used by the registry package.
func SetLogger(l logr.Logger) {
	logger = l
}

// Registry allows us to store the schema of the protobuf messages. We look this up when we need to interpret
// or build a message.
type Registry struct {
	ProtoDirectories []string

	parsedProtoBody map[string]*protoparserparser.Proto // file path -> parsed body
	protoEntities   map[string]*protoFileEntity         // file path -> resolved imports
	repo            *schema.ProtoRepo

	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	services map[string]*schema.Service // fully qualified name -> service
}

type protoFileEntity struct {
	imports []string
}

// pendingType is a field or method type name waiting for resolution once every file is registered.
type pendingType struct {
	fieldType *schema.FieldType
	method    *schema.Method
	output    bool
	name      string
	scope     string
	file      string
}

// NewRegistry returns a registry that resolves .proto files and their imports against protoDirectories.
func NewRegistry(protoDirectories []string) *Registry {
	return &Registry{
		ProtoDirectories: protoDirectories,
		parsedProtoBody:  make(map[string]*protoparserparser.Proto),
		protoEntities:    make(map[string]*protoFileEntity),
		repo:             &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
		services:         make(map[string]*schema.Service),
	}
}

// LoadSchemaFromFile loads protoFile and every file it imports. The path is resolved against the
// registry's proto directories.
func (r *Registry) LoadSchemaFromFile(protoFile string) error {
	files, err := r.getAllProtoInfo(protoFile)
	if err != nil {
		return err
	}

	var (
		result  *multierror.Error
		pending []pendingType
	)
	for _, file := range files {
		pf, p, err := r.convertFile(file, r.parsedProtoBody[file])
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		r.repo.ProtoFiles[file] = pf
		pending = append(pending, p...)
		logger.V(2).Info("loaded proto file", "file", file, "package", pf.Package, "syntax", pf.Syntax,
			"messages", len(pf.Messages), "enums", len(pf.Enums))
	}

	if err := r.resolve(pending); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// LoadSchema scans protoPath recursively and loads every *.proto file inside it. A single file is loaded on
// its own. Failures of individual files are collected and returned together.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		r.addDirectory(filepath.Dir(protoPath))
		return r.LoadSchemaFromFile(filepath.Base(protoPath))
	}

	r.addDirectory(protoPath)
	var result *multierror.Error
	err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip directories and non-proto files
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}
		rel, err := filepath.Rel(protoPath, path)
		if err != nil {
			return err
		}
		if err := r.LoadSchemaFromFile(rel); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to load proto file %s: %w", path, err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}
	return result.ErrorOrNil()
}

func (r *Registry) addDirectory(dir string) {
	for _, d := range r.ProtoDirectories {
		if d == dir {
			return
		}
	}
	r.ProtoDirectories = append(r.ProtoDirectories, dir)
}

// converter turns one parsed file into schema types and records names it could not resolve yet.
type converter struct {
	r       *Registry
	file    string
	syntax  string
	pending []pendingType
}

func (r *Registry) convertFile(file string, proto *protoparserparser.Proto) (*schema.ProtoFile, []pendingType, error) {
	if proto == nil {
		return nil, nil, fmt.Errorf("%s: not parsed", file)
	}
	pf := &schema.ProtoFile{
		Name:   file,
		Syntax: "proto2", // protoc's default when no syntax statement is present
	}
	if proto.Syntax != nil {
		pf.Syntax = strings.Trim(proto.Syntax.ProtobufVersion, `"'`)
	}
	for _, body := range proto.ProtoBody {
		if p, ok := body.(*protoparserparser.Package); ok {
			pf.Package = p.Name
		}
	}

	c := &converter{r: r, file: file, syntax: pf.Syntax}
	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Import:
			pf.Imports = append(pf.Imports, &schema.Import{
				Path:   strings.Trim(b.Location, `"'`),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			msg, err := c.message(b.MessageName, b.MessageBody, pf.Package)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			pf.Messages = append(pf.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := c.enum(b, pf.Package)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			pf.Enums = append(pf.Enums, enum)
		case *protoparserparser.Service:
			pf.Services = append(pf.Services, c.service(b, pf.Package))
		}
	}
	return pf, c.pending, nil
}

func (c *converter) message(name string, body []protoparserparser.Visitee, scope string) (*schema.Message, error) {
	msg := &schema.Message{
		Name:     name,
		FullName: joinName(scope, name),
		Syntax:   c.syntax,
	}
	c.r.messages[msg.FullName] = msg

	for _, v := range body {
		switch b := v.(type) {
		case *protoparserparser.Field:
			f, err := c.field(b.FieldName, b.FieldNumber, b.Type, b.FieldOptions, msg.FullName)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", msg.FullName, b.FieldName, err)
			}
			switch {
			case b.IsRepeated:
				f.Label = schema.LabelRepeated
			case b.IsRequired:
				f.Label = schema.LabelRequired
			}
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.MapField:
			f, err := c.mapField(b, msg.FullName)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", msg.FullName, b.MapName, err)
			}
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.Oneof:
			oneof := &schema.Oneof{Name: b.OneofName}
			index := int32(len(msg.OneofGroups))
			for _, of := range b.OneofFields {
				f, err := c.field(of.FieldName, of.FieldNumber, of.Type, of.FieldOptions, msg.FullName)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", msg.FullName, of.FieldName, err)
				}
				f.OneofIndex = index
				oneof.Fields = append(oneof.Fields, f)
				msg.Fields = append(msg.Fields, f)
			}
			msg.OneofGroups = append(msg.OneofGroups, oneof)

		case *protoparserparser.GroupField:
			nested, err := c.message(b.GroupName, b.MessageBody, msg.FullName)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
			num, err := parseNumber(b.FieldNumber)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", msg.FullName, b.GroupName, err)
			}
			f := &schema.Field{
				Name:       strings.ToLower(b.GroupName),
				Number:     num,
				Label:      schema.LabelOptional,
				Type:       schema.FieldType{Kind: schema.KindGroup, MessageType: nested.FullName},
				OneofIndex: -1,
			}
			f.JsonName = toLowerCamel(f.Name)
			switch {
			case b.IsRepeated:
				f.Label = schema.LabelRepeated
			case b.IsRequired:
				f.Label = schema.LabelRequired
			}
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.Message:
			nested, err := c.message(b.MessageName, b.MessageBody, msg.FullName)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)

		case *protoparserparser.Enum:
			enum, err := c.enum(b, msg.FullName)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil
}

func (c *converter) field(name, number, typeName string, options []*protoparserparser.FieldOption, scope string) (*schema.Field, error) {
	num, err := parseNumber(number)
	if err != nil {
		return nil, err
	}
	f := &schema.Field{
		Name:       name,
		Number:     num,
		Label:      schema.LabelOptional,
		JsonName:   toLowerCamel(name),
		OneofIndex: -1,
	}
	for _, opt := range options {
		switch opt.OptionName {
		case "packed":
			packed := opt.Constant == "true"
			f.Packed = &packed
		case "json_name":
			f.JsonName = strings.Trim(opt.Constant, `"'`)
		}
	}
	c.fieldType(&f.Type, typeName, scope)
	return f, nil
}

func (c *converter) mapField(m *protoparserparser.MapField, scope string) (*schema.Field, error) {
	num, err := parseNumber(m.FieldNumber)
	if err != nil {
		return nil, err
	}
	keyType, ok := schema.LookupPrimitive(m.KeyType)
	if !ok || keyType == schema.TypeDouble || keyType == schema.TypeFloat || keyType == schema.TypeBytes {
		return nil, fmt.Errorf("invalid map key type %s", m.KeyType)
	}
	f := &schema.Field{
		Name:     m.MapName,
		Number:   num,
		Label:    schema.LabelRepeated,
		JsonName: toLowerCamel(m.MapName),
		Type: schema.FieldType{
			Kind:     schema.KindMap,
			MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: keyType},
			MapValue: &schema.FieldType{},
		},
		OneofIndex: -1,
	}
	c.fieldType(f.Type.MapValue, m.Type, scope)
	return f, nil
}

// fieldType fills in scalar types directly and defers everything else until all names are known.
func (c *converter) fieldType(ft *schema.FieldType, typeName, scope string) {
	if p, ok := schema.LookupPrimitive(typeName); ok {
		ft.Kind = schema.KindPrimitive
		ft.PrimitiveType = p
		return
	}
	c.pending = append(c.pending, pendingType{fieldType: ft, name: typeName, scope: scope, file: c.file})
}

func (c *converter) enum(e *protoparserparser.Enum, scope string) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName, FullName: joinName(scope, e.EnumName)}
	for _, v := range e.EnumBody {
		switch b := v.(type) {
		case *protoparserparser.EnumField:
			num, err := parseNumber(b.Number)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", enum.FullName, b.Ident, err)
			}
			enum.Values = append(enum.Values, &schema.EnumValue{Name: b.Ident, Number: num})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" {
				enum.AllowAlias = b.Constant == "true"
			}
		}
	}
	c.r.enums[enum.FullName] = enum
	return enum, nil
}

func (c *converter) service(s *protoparserparser.Service, pkg string) *schema.Service {
	svc := &schema.Service{Name: s.ServiceName}
	for _, v := range s.ServiceBody {
		rpc, ok := v.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		m := &schema.Method{Name: rpc.RPCName}
		if rpc.RPCRequest != nil {
			m.ClientStreaming = rpc.RPCRequest.IsStream
			c.pending = append(c.pending, pendingType{method: m, name: rpc.RPCRequest.MessageType, scope: pkg, file: c.file})
		}
		if rpc.RPCResponse != nil {
			m.ServerStreaming = rpc.RPCResponse.IsStream
			c.pending = append(c.pending, pendingType{method: m, output: true, name: rpc.RPCResponse.MessageType, scope: pkg, file: c.file})
		}
		svc.Methods = append(svc.Methods, m)
	}
	c.r.services[joinName(pkg, s.ServiceName)] = svc
	return svc
}

// resolve binds pending type names against everything registered so far.
func (r *Registry) resolve(pending []pendingType) error {
	entities := make(map[string]struct{}, len(r.messages)+len(r.enums))
	for name := range r.messages {
		entities[name] = struct{}{}
	}
	for name := range r.enums {
		entities[name] = struct{}{}
	}

	var result *multierror.Error
	for _, p := range pending {
		name, err := getReferencedType(p.name, p.scope, entities)
		if err != nil {
			trimmed := strings.TrimPrefix(p.name, ".")
			if !strings.HasPrefix(trimmed, "google.protobuf.") {
				result = multierror.Append(result, fmt.Errorf("%s: %s: %w", p.file, p.scope, err))
				continue
			}
			// Well-known type without a loaded definition. Kept as an opaque message.
			logger.V(2).Info("unresolved well-known type", "type", trimmed, "scope", p.scope)
			name = trimmed
		}

		if p.method != nil {
			if p.output {
				p.method.OutputType = name
			} else {
				p.method.InputType = name
			}
			continue
		}
		if _, ok := r.enums[name]; ok {
			p.fieldType.Kind = schema.KindEnum
			p.fieldType.EnumType = name
			continue
		}
		p.fieldType.Kind = schema.KindMessage
		p.fieldType.MessageType = name
	}
	return result.ErrorOrNil()
}

func parseNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return int32(n), nil
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	name = strings.TrimPrefix(name, ".")
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}

	// Try without package prefix
	for _, fullName := range sortedKeys(r.messages) {
		if strings.HasSuffix(fullName, "."+name) {
			return r.messages[fullName], nil
		}
	}

	return nil, fmt.Errorf("message not found: %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	name = strings.TrimPrefix(name, ".")
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}

	for _, fullName := range sortedKeys(r.enums) {
		if strings.HasSuffix(fullName, "."+name) {
			return r.enums[fullName], nil
		}
	}

	return nil, fmt.Errorf("enum not found: %s", name)
}

// GetService retrieves a service definition by name
func (r *Registry) GetService(name string) (*schema.Service, error) {
	name = strings.TrimPrefix(name, ".")
	if service, exists := r.services[name]; exists {
		return service, nil
	}

	for _, fullName := range sortedKeys(r.services) {
		if strings.HasSuffix(fullName, "."+name) {
			return r.services[fullName], nil
		}
	}

	return nil, fmt.Errorf("service not found: %s", name)
}

// Files returns the loaded files keyed by resolved path.
func (r *Registry) Files() map[string]*schema.ProtoFile {
	return r.repo.ProtoFiles
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string { return sortedKeys(r.messages) }

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string { return sortedKeys(r.enums) }

// ListServices returns all registered service names, sorted.
func (r *Registry) ListServices() []string { return sortedKeys(r.services) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
