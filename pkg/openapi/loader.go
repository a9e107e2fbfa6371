// Package openapi derives ServiceSpecs from OpenAPI v3 documents, so a
// group can be pointed at a described API without hand-writing operations.
package openapi

import (
	"fmt"
	"os"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/declarest/declarest/pkg/registry"
)

// LoadSpec parses an OpenAPI v3 document and builds a ServiceSpec named
// name whose operations cover every path item in the document. Paths are
// kept relative to basePath; the group's base URL supplies the host.
func LoadSpec(data []byte, name, basePath string) (registry.ServiceSpec, error) {
	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return registry.ServiceSpec{}, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	model, errs := document.BuildV3Model()
	if len(errs) > 0 {
		return registry.ServiceSpec{}, fmt.Errorf("building v3 model: %v", errs)
	}

	spec := registry.ServiceSpec{
		Name:     name,
		BasePath: basePath,
	}

	if model.Model.Paths == nil || model.Model.Paths.PathItems == nil {
		return spec, nil
	}

	for pathPattern, pathItem := range model.Model.Paths.PathItems.FromOldest() {
		for method, op := range operationsOf(pathItem) {
			operation := registry.Operation{
				Name:   operationName(op, method, pathPattern),
				Method: method,
				Path:   strings.TrimPrefix(pathPattern, basePath),
				Params: bindingsOf(pathItem, op),
			}
			spec.Operations = append(spec.Operations, operation)
		}
	}

	if err := spec.Validate(); err != nil {
		return registry.ServiceSpec{}, err
	}
	return spec, nil
}

// LoadSpecFile reads an OpenAPI document from disk and builds a spec.
func LoadSpecFile(path, name, basePath string) (registry.ServiceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.ServiceSpec{}, fmt.Errorf("reading OpenAPI document %s: %w", path, err)
	}
	return LoadSpec(data, name, basePath)
}

func operationsOf(pathItem *v3.PathItem) map[registry.Method]*v3.Operation {
	ops := make(map[registry.Method]*v3.Operation)
	if pathItem.Get != nil {
		ops[registry.MethodGet] = pathItem.Get
	}
	if pathItem.Post != nil {
		ops[registry.MethodPost] = pathItem.Post
	}
	if pathItem.Put != nil {
		ops[registry.MethodPut] = pathItem.Put
	}
	if pathItem.Delete != nil {
		ops[registry.MethodDelete] = pathItem.Delete
	}
	if pathItem.Patch != nil {
		ops[registry.MethodPatch] = pathItem.Patch
	}
	return ops
}

// operationName prefers the document's operationId, falling back to a
// slug derived from the method and path.
func operationName(op *v3.Operation, method registry.Method, pathPattern string) string {
	if op.OperationId != "" {
		return op.OperationId
	}

	slug := strings.NewReplacer("/", "_", "{", "", "}", "").Replace(strings.Trim(pathPattern, "/"))
	if slug == "" {
		slug = "root"
	}
	return strings.ToLower(string(method)) + "_" + slug
}

// bindingsOf maps declared parameters (path-level plus operation-level)
// onto registry parameter bindings, and adds a body binding when the
// operation declares a request body.
func bindingsOf(pathItem *v3.PathItem, op *v3.Operation) []registry.ParamBinding {
	var bindings []registry.ParamBinding
	seen := make(map[string]bool)

	add := func(params []*v3.Parameter) {
		for _, param := range params {
			if param == nil || seen[param.Name] {
				continue
			}
			var source registry.ParamSource
			switch param.In {
			case "path":
				source = registry.SourcePath
			case "query":
				source = registry.SourceQuery
			case "header":
				source = registry.SourceHeader
			default:
				continue // cookie parameters have no binding here
			}
			seen[param.Name] = true
			bindings = append(bindings, registry.ParamBinding{Name: param.Name, Source: source})
		}
	}

	add(pathItem.Parameters)
	add(op.Parameters)

	if op.RequestBody != nil {
		bindings = append(bindings, registry.ParamBinding{Name: "body", Source: registry.SourceBody})
	}

	return bindings
}
