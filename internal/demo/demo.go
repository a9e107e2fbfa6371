// Package demo declares the sample ServiceSpecs the binary ships with:
// JSONPlaceholder posts and comments plus DummyJSON products, spread over
// three groups to exercise independent base URLs and both engine kinds.
package demo

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/declarest/declarest/internal/config"
	"github.com/declarest/declarest/pkg/registry"
	"github.com/declarest/declarest/pkg/transport"
)

// Post is the JSONPlaceholder posts resource.
type Post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Comment is the JSONPlaceholder comments resource.
type Comment struct {
	PostID int    `json:"postId"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// Product is the DummyJSON products resource.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
}

const (
	GroupJSONPlaceholder = "jsonplaceholder"
	GroupDummyJSON       = "dummyjson"
	GroupAsyncComments   = "async-comments"
)

// Specs returns the declared service specs.
func Specs() []registry.ServiceSpec {
	return []registry.ServiceSpec{
		{
			Name:     "posts",
			BasePath: "/posts",
			Operations: []registry.Operation{
				{
					Name:   "list",
					Method: registry.MethodGet,
					Path:   "",
				},
				{
					Name:   "getById",
					Method: registry.MethodGet,
					Path:   "/{id}",
					Params: []registry.ParamBinding{
						{Name: "id", Source: registry.SourcePath},
					},
				},
			},
		},
		{
			Name:     "comments",
			BasePath: "/comments",
			Operations: []registry.Operation{
				{
					Name:   "list",
					Method: registry.MethodGet,
					Path:   "",
					Params: []registry.ParamBinding{
						{Name: "postId", Source: registry.SourceQuery},
					},
				},
				{
					Name:   "getById",
					Method: registry.MethodGet,
					Path:   "/{id}",
					Params: []registry.ParamBinding{
						{Name: "id", Source: registry.SourcePath},
					},
				},
			},
		},
		{
			Name:     "products",
			BasePath: "/products",
			Operations: []registry.Operation{
				{
					Name:   "getById",
					Method: registry.MethodGet,
					Path:   "/{id}",
					Params: []registry.ParamBinding{
						{Name: "id", Source: registry.SourcePath},
					},
				},
			},
		},
	}
}

// Bindings maps each spec to its group.
func Bindings() map[string]string {
	return map[string]string{
		"posts":    GroupJSONPlaceholder,
		"products": GroupDummyJSON,
		"comments": GroupAsyncComments,
	}
}

// DefaultGroups returns group settings for the public demo APIs, used when
// the config file doesn't override them.
func DefaultGroups() map[string]config.GroupSettings {
	return map[string]config.GroupSettings{
		GroupJSONPlaceholder: {
			BaseURL: "https://jsonplaceholder.typicode.com",
			Engine:  "sync",
			Timeout: "10s",
			Headers: map[string]string{"Accept": "application/json"},
		},
		GroupDummyJSON: {
			BaseURL: "https://dummyjson.com",
			Engine:  "sync",
			Timeout: "10s",
			Headers: map[string]string{"Accept": "application/json"},
		},
		GroupAsyncComments: {
			BaseURL: "https://jsonplaceholder.typicode.com",
			Engine:  "async",
			Timeout: "10s",
			Headers: map[string]string{"Accept": "application/json"},
		},
	}
}

// Assemble initializes a registry from the demo specs and the configured
// group settings. Group settings missing from the config fall back to the
// demo defaults.
func Assemble(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (*registry.Registry, error) {
	for name, settings := range DefaultGroups() {
		if _, ok := cfg.Groups[name]; !ok {
			cfg.Groups[name] = settings
		}
	}

	specs := Specs()
	bindings := Bindings()

	seen := make(map[string]bool)
	referenced := make([]string, 0, len(specs))
	for _, spec := range specs {
		if name := bindings[spec.Name]; !seen[name] {
			seen[name] = true
			referenced = append(referenced, name)
		}
	}
	if err := cfg.Validate(referenced); err != nil {
		return nil, err
	}

	groups := make([]registry.GroupConfig, 0, len(referenced))
	for _, name := range referenced {
		group, err := buildGroup(ctx, logger, name, cfg.Groups[name])
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return registry.Initialize(logger, specs, groups, bindings)
}

// buildGroup converts file settings into a GroupConfig, attaching the
// standing filters: every group stamps request IDs, and the async group
// additionally logs its exchanges.
func buildGroup(ctx context.Context, logger zerolog.Logger, name string, settings config.GroupSettings) (registry.GroupConfig, error) {
	engine, err := registry.ParseEngineKind(settings.Engine)
	if err != nil {
		return registry.GroupConfig{}, err
	}

	timeout, err := settings.ParsedTimeout()
	if err != nil {
		return registry.GroupConfig{}, err
	}

	group := registry.GroupConfig{
		Name:           name,
		Engine:         engine,
		BaseURL:        settings.BaseURL,
		Headers:        settings.Headers,
		Timeout:        timeout,
		RequestFilters: []registry.RequestFilter{registry.RequestID()},
	}

	if engine == registry.EngineAsync {
		groupLogger := logger.With().Str("group", name).Logger()
		group.RequestFilters = append(group.RequestFilters, registry.LogRequests(groupLogger))
		group.ResponseFilters = append(group.ResponseFilters, registry.LogResponses(groupLogger))
	}

	switch settings.Transport {
	case "", "http":
	case "lambda":
		lambdaTransport, err := transport.NewLambda(ctx)
		if err != nil {
			return registry.GroupConfig{}, registry.Wrapf(err, registry.ErrorTypeConfig, "group %q lambda transport", name)
		}
		group.Transport = lambdaTransport
	default:
		return registry.GroupConfig{}, registry.Newf(registry.ErrorTypeConfig, "group %q has unknown transport %q", name, settings.Transport)
	}

	return group, nil
}
