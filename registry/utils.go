package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
)

// wellKnownPrefix marks imports that resolve to the protobuf runtime's own
// descriptors. They are loaded when present in a proto directory and skipped
// otherwise.
const wellKnownPrefix = "google/protobuf/"

// getAllProtoInfo uses DFS to fetch all the files reachable from protoFile through imports.
// Files already loaded by an earlier call are not returned again.
func (r *Registry) getAllProtoInfo(protoFile string) ([]string, error) {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	result := make([]string, 0)

	var dfs func(protoFile string) error
	dfs = func(protoFile string) error {
		if _, ok := visited[protoFile]; ok {
			return nil
		}
		visited[protoFile] = struct{}{}
		if _, ok := r.parsedProtoBody[protoFile]; ok {
			return nil
		}

		parsedBody, err := parseProtoFile(protoFile)
		if err != nil {
			return err
		}
		r.parsedProtoBody[protoFile] = parsedBody
		entity := &protoFileEntity{imports: make([]string, 0)}
		for _, body := range parsedBody.ProtoBody {
			imp, ok := body.(*protoparserparser.Import)
			if !ok {
				continue
			}
			importPath := strings.Trim(imp.Location, `"'`)
			fullImportPath, err := r.findIfProtoExists(importPath)
			if err != nil {
				if strings.HasPrefix(importPath, wellKnownPrefix) {
					logger.V(2).Info("skipping unavailable well-known import", "file", protoFile, "import", importPath)
					continue
				}
				return fmt.Errorf("%s: %w", protoFile, err)
			}
			entity.imports = append(entity.imports, fullImportPath)
			if err = dfs(fullImportPath); err != nil {
				return err
			}
		}
		r.protoEntities[protoFile] = entity
		// imports first, so dependencies register before dependants
		result = append(result, protoFile)
		return nil
	}
	// run dfs on the input proto path
	protoPath, err := r.findIfProtoExists(protoFile)
	if err != nil {
		return nil, err
	}
	if err := dfs(protoPath); err != nil {
		return nil, err
	}
	return result, nil
}

func parseProtoFile(protoFile string) (*protoparserparser.Proto, error) {
	f, err := os.Open(protoFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	parsed, err := protoparser.Parse(f, protoparser.WithFilename(filepath.Base(protoFile)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", protoFile, err)
	}
	return parsed, nil
}

// findIfProtoExists resolves protoPath against the configured directories.
// The first directory holding the file wins.
func (r *Registry) findIfProtoExists(protoPath string) (string, error) {
	var (
		fullPath      string
		fullProtoPath string
		err           error
	)
	protoPath = strings.Trim(protoPath, `"`)
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file: %s", protoPath)
	}
	dirs := r.ProtoDirectories
	if len(dirs) == 0 || filepath.IsAbs(protoPath) {
		dirs = []string{""}
	}
	for _, dir := range dirs {
		fullPath = filepath.Join(dir, protoPath)
		if _, err = os.Stat(fullPath); err == nil {
			fullProtoPath = fullPath
			break
		}
	}
	if fullProtoPath == "" {
		return "", fmt.Errorf("path does not exist: %s: %w", protoPath, err)
	}
	return fullProtoPath, nil
}

/*
This helper function will return the entity for any referenced type,
be it top level, nested or imported. If not found will return an error.
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, error) {
	// check if fully qualified prefixed by dot
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, allResolvedEntities)
	}
	// try resolving from inner entities up till the parent package
	if result, ok := splitNameAndCheck(typeName, prefix, allResolvedEntities); ok {
		return result, nil
	}
	// check if the entity is referenced to other packages via packageName
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck splits the prefixName and tries to append the typeName and find the entity for resolution
// it also tries the find the entities defined using relative path
func splitNameAndCheck(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, bool) {
	prefixSplit := strings.Split(prefix, ".")

	for len(prefixSplit) > 0 && prefixSplit[0] != "" {
		entityName := strings.Join(prefixSplit, ".") + "." + typeName
		if _, ok := allResolvedEntities[entityName]; ok {
			return entityName, true
		}
		// Omit the last element in each iteration as we go level above to outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, allResolvedEntities map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified type name: .%s", typeName)
}

// toLowerCamel converts snake_case to lowerCamelCase, the default JSON name of a field.
func toLowerCamel(s string) string {
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}

func joinName(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}
