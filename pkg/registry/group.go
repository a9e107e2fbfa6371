package registry

import (
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EngineKind selects the calling convention for a group: a sync engine
// blocks the caller, an async engine completes through a deferred handle.
type EngineKind string

const (
	EngineSync  EngineKind = "sync"
	EngineAsync EngineKind = "async"
)

// ParseEngineKind converts a configuration string into an EngineKind.
func ParseEngineKind(s string) (EngineKind, error) {
	switch EngineKind(s) {
	case EngineSync, "":
		return EngineSync, nil
	case EngineAsync:
		return EngineAsync, nil
	default:
		return "", Newf(ErrorTypeConfig, "unknown engine kind %q", s).
			WithContext("valid_kinds", []EngineKind{EngineSync, EngineAsync})
	}
}

// GroupConfig is a named configuration bundle shared by every spec bound to
// the group. It is mutable only until the configurator is frozen.
type GroupConfig struct {
	Name            string
	Engine          EngineKind
	BaseURL         string
	Headers         map[string]string
	Timeout         time.Duration
	RequestFilters  []RequestFilter
	ResponseFilters []ResponseFilter

	// Transport, when set, replaces the engine's default RoundTripper.
	// Used to route a group through an alternative transport such as
	// Lambda invocation.
	Transport http.RoundTripper
}

// Configurator binds group names to engine kind and settings, and resolves
// transport engine instances. DefineGroup is only legal during the startup
// configuration phase; ResolveEngine caches one engine per group.
type Configurator struct {
	logger  zerolog.Logger
	groups  map[string]*GroupConfig
	engines map[string]*Engine
	frozen  bool
	mu      sync.Mutex
}

// NewConfigurator creates an empty group configurator.
func NewConfigurator(logger zerolog.Logger) *Configurator {
	return &Configurator{
		logger:  logger.With().Str("component", "configurator").Logger(),
		groups:  make(map[string]*GroupConfig),
		engines: make(map[string]*Engine),
	}
}

// DefineGroup registers a group. The base URL must be a syntactically valid
// absolute URL, and group names are unique within the configurator.
func (c *Configurator) DefineGroup(cfg GroupConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return Newf(ErrorTypeConfig, "cannot define group %q: configuration phase is over", cfg.Name)
	}
	if cfg.Name == "" {
		return New(ErrorTypeConfig, "group has no name")
	}
	if _, exists := c.groups[cfg.Name]; exists {
		return Newf(ErrorTypeConfig, "group %q already defined", cfg.Name)
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return Wrapf(err, ErrorTypeConfig, "group %q has an unparseable base URL", cfg.Name)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Newf(ErrorTypeConfig, "group %q base URL %q is not absolute", cfg.Name, cfg.BaseURL)
	}

	if _, err := ParseEngineKind(string(cfg.Engine)); err != nil {
		return err
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineSync
	}

	c.groups[cfg.Name] = &cfg
	c.logger.Debug().
		Str("group", cfg.Name).
		Str("engine", string(cfg.Engine)).
		Str("base_url", cfg.BaseURL).
		Msg("group defined")
	return nil
}

// Group looks up a group definition by name.
func (c *Configurator) Group(name string) (*GroupConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[name]
	return g, ok
}

// Names returns the defined group names in sorted order.
func (c *Configurator) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveEngine lazily constructs the transport engine for a group.
// Repeated calls for the same group return the same cached engine.
func (c *Configurator) ResolveEngine(name string) (*Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if engine, ok := c.engines[name]; ok {
		return engine, nil
	}

	cfg, ok := c.groups[name]
	if !ok {
		return nil, Newf(ErrorTypeConfig, "unknown group %q", name)
	}

	engine := newEngine(cfg)
	c.engines[name] = engine
	c.logger.Debug().
		Str("group", name).
		Str("engine", string(cfg.Engine)).
		Msg("engine resolved")
	return engine, nil
}

// Freeze ends the configuration phase. Further DefineGroup calls fail.
func (c *Configurator) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Close releases every resolved engine. Safe to call after a partial
// initialization: only engines that were actually resolved are released,
// and releasing an engine twice is a no-op.
func (c *Configurator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, engine := range c.engines {
		engine.Close()
		c.logger.Debug().Str("group", name).Msg("engine released")
	}
}
