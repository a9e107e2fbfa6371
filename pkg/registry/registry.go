package registry

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry owns every group config, resolved engine and client proxy for
// the process. It is constructed once at startup via Initialize and torn
// down via Shutdown; there is no ambient global lookup.
type Registry struct {
	logger   zerolog.Logger
	specs    *SpecRegistry
	groups   *Configurator
	proxies  map[string]*ClientProxy
	teardown sync.Once
}

// Initialize validates and assembles a registry: every spec must be bound
// to exactly one defined group, and every referenced group must resolve an
// engine. Any configuration error aborts initialization entirely — the
// partially built registry is torn down and never serves traffic.
func Initialize(logger zerolog.Logger, specs []ServiceSpec, groups []GroupConfig, bindings map[string]string) (*Registry, error) {
	logger = logger.With().Str("component", "registry").Logger()

	configurator := NewConfigurator(logger)
	for _, group := range groups {
		if err := configurator.DefineGroup(group); err != nil {
			configurator.Close()
			return nil, err
		}
	}

	specRegistry := NewSpecRegistry()
	for _, spec := range specs {
		if err := specRegistry.Register(spec); err != nil {
			configurator.Close()
			return nil, err
		}
	}

	proxies := make(map[string]*ClientProxy, len(specs))
	for _, spec := range specs {
		groupName, bound := bindings[spec.Name]
		if !bound {
			configurator.Close()
			return nil, Newf(ErrorTypeConfig, "spec %q is not bound to any group", spec.Name)
		}

		group, ok := configurator.Group(groupName)
		if !ok {
			configurator.Close()
			return nil, Newf(ErrorTypeConfig, "spec %q is bound to unknown group %q", spec.Name, groupName)
		}

		engine, err := configurator.ResolveEngine(groupName)
		if err != nil {
			configurator.Close()
			return nil, err
		}

		proxies[spec.Name] = BuildProxy(logger, spec, group, engine)
		logger.Debug().
			Str("spec", spec.Name).
			Str("group", groupName).
			Msg("proxy built")
	}

	configurator.Freeze()

	return &Registry{
		logger:  logger,
		specs:   specRegistry,
		groups:  configurator,
		proxies: proxies,
	}, nil
}

// Proxy returns the client proxy built for the named spec.
func (r *Registry) Proxy(name string) (*ClientProxy, error) {
	proxy, ok := r.proxies[name]
	if !ok {
		return nil, Newf(ErrorTypeConfig, "no proxy for spec %q", name)
	}
	return proxy, nil
}

// SpecNames returns the names of every registered spec, sorted.
func (r *Registry) SpecNames() []string {
	return r.specs.Names()
}

// Spec looks up a registered spec by name.
func (r *Registry) Spec(name string) (ServiceSpec, bool) {
	return r.specs.Get(name)
}

// GroupNames returns the names of every defined group, sorted.
func (r *Registry) GroupNames() []string {
	return r.groups.Names()
}

// Group looks up a group definition by name.
func (r *Registry) Group(name string) (*GroupConfig, bool) {
	return r.groups.Group(name)
}

// Shutdown releases every engine resource acquired during initialization.
// Safe to call more than once.
func (r *Registry) Shutdown() {
	r.teardown.Do(func() {
		r.groups.Close()
		r.logger.Debug().Msg("registry shut down")
	})
}
