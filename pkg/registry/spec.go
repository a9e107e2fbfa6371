package registry

import (
	"sort"
	"strings"
)

// Method is the HTTP method of an Operation.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

var validMethods = map[Method]bool{
	MethodGet:    true,
	MethodPost:   true,
	MethodPut:    true,
	MethodDelete: true,
	MethodPatch:  true,
}

// ParamSource identifies where a bound parameter is placed on the request.
type ParamSource string

const (
	SourcePath   ParamSource = "path"
	SourceQuery  ParamSource = "query"
	SourceBody   ParamSource = "body"
	SourceHeader ParamSource = "header"
)

// ParamBinding binds a named argument to a location on the outgoing request.
type ParamBinding struct {
	Name   string
	Source ParamSource
}

// Operation describes one callable remote operation: an HTTP method, a path
// template relative to the spec's base path, and its parameter bindings.
// Operation-level headers override group defaults on key collision.
type Operation struct {
	Name    string
	Method  Method
	Path    string // may contain {placeholders}
	Params  []ParamBinding
	Headers map[string]string
}

// ServiceSpec is a declarative, engine-agnostic description of a remote API.
// Specs are plain data: they are declared once at registration time and
// never mutated afterwards.
type ServiceSpec struct {
	Name       string
	BasePath   string
	Operations []Operation
}

// Operation looks up an operation by name.
func (s ServiceSpec) Operation(name string) (Operation, bool) {
	for _, op := range s.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Validate checks the spec for structural problems: missing names, unknown
// methods, duplicate operation names, more than one body binding.
func (s ServiceSpec) Validate() error {
	if s.Name == "" {
		return New(ErrorTypeConfig, "service spec has no name")
	}
	if s.BasePath != "" && !strings.HasPrefix(s.BasePath, "/") {
		return Newf(ErrorTypeConfig, "base path %q must start with /", s.BasePath).
			WithContext("spec", s.Name)
	}

	seen := make(map[string]bool, len(s.Operations))
	for _, op := range s.Operations {
		if op.Name == "" {
			return Newf(ErrorTypeConfig, "spec %q has an unnamed operation", s.Name)
		}
		if seen[op.Name] {
			return Newf(ErrorTypeConfig, "spec %q declares operation %q twice", s.Name, op.Name)
		}
		seen[op.Name] = true

		if !validMethods[op.Method] {
			return Newf(ErrorTypeConfig, "operation %q has invalid method %q", op.Name, op.Method).
				WithContext("spec", s.Name)
		}

		bodies := 0
		for _, p := range op.Params {
			if p.Source == SourceBody {
				bodies++
			}
		}
		if bodies > 1 {
			return Newf(ErrorTypeConfig, "operation %q binds more than one body parameter", op.Name).
				WithContext("spec", s.Name)
		}
	}
	return nil
}

// SpecRegistry holds the set of declared ServiceSpecs. Registration happens
// during the single-threaded startup configuration phase; afterwards the
// registry is read-only and safe for concurrent lookups.
type SpecRegistry struct {
	specs map[string]ServiceSpec
}

// NewSpecRegistry creates an empty spec registry.
func NewSpecRegistry() *SpecRegistry {
	return &SpecRegistry{
		specs: make(map[string]ServiceSpec),
	}
}

// Register adds a spec. Registering two specs with the same name is a
// configuration error.
func (r *SpecRegistry) Register(spec ServiceSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, exists := r.specs[spec.Name]; exists {
		return Newf(ErrorTypeConfig, "service spec %q already registered", spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

// Get looks up a spec by name.
func (r *SpecRegistry) Get(name string) (ServiceSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns the registered spec names in sorted order.
func (r *SpecRegistry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
