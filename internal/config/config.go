package config

import (
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/declarest/declarest/pkg/registry"
)

// GroupSettings is the configuration-file shape of one client group.
// Base URL is required for every referenced group; timeout and headers
// are optional. The engine defaults to sync, the transport to plain HTTP.
type GroupSettings struct {
	BaseURL   string            `yaml:"base-url"`
	Engine    string            `yaml:"engine"`    // sync | async
	Transport string            `yaml:"transport"` // http | lambda
	Timeout   string            `yaml:"timeout"`   // Go duration string, e.g. "5s"
	Headers   map[string]string `yaml:"headers"`
}

// ParsedTimeout converts the timeout string, with zero meaning
// engine-default.
func (g GroupSettings) ParsedTimeout() (time.Duration, error) {
	if g.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 0, registry.Wrapf(err, registry.ErrorTypeConfig, "invalid timeout %q", g.Timeout)
	}
	return d, nil
}

// File is the on-disk configuration shape.
type File struct {
	Listen string                   `yaml:"listen"`
	Groups map[string]GroupSettings `yaml:"groups"`
}

// Config holds all application configuration
type Config struct {
	Listen     string
	ConfigPath string
	Verbose    bool
	LogFormat  string

	Groups map[string]GroupSettings
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		Listen: ":8080",
		Groups: make(map[string]GroupSettings),
	}
}

// LoadFromFlags creates a Config from command line flags, the optional
// YAML group file, and DECLAREST_* environment fallbacks.
func LoadFromFlags(flags *pflag.FlagSet) (*Config, error) {
	config := NewConfig()

	var err error

	if config.ConfigPath, err = flags.GetString("config"); err != nil {
		return nil, registry.Wrap(err, registry.ErrorTypeConfig, "failed to get config flag")
	}

	if config.Listen, err = flags.GetString("listen"); err != nil {
		return nil, registry.Wrap(err, registry.ErrorTypeConfig, "failed to get listen flag")
	}

	if config.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, registry.Wrap(err, registry.ErrorTypeConfig, "failed to get verbose flag")
	}

	if config.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, registry.Wrap(err, registry.ErrorTypeConfig, "failed to get log-format flag")
	}

	// Environment fallbacks (DECLAREST_ prefixed to avoid collisions)
	if config.ConfigPath == "" {
		config.ConfigPath = os.Getenv("DECLAREST_CONFIG")
	}
	if !flags.Changed("listen") {
		if listen := os.Getenv("DECLAREST_LISTEN"); listen != "" {
			config.Listen = listen
		}
	}

	if config.ConfigPath != "" {
		if err := config.LoadFile(config.ConfigPath); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// LoadFile merges a YAML configuration file into the config. File group
// settings replace defaults wholesale for the groups they name.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Wrapf(err, registry.ErrorTypeConfig, "failed to read config file %s", path)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return registry.Wrapf(err, registry.ErrorTypeConfig, "failed to parse config file %s", path)
	}

	if file.Listen != "" {
		c.Listen = file.Listen
	}
	for name, settings := range file.Groups {
		c.Groups[name] = settings
	}
	return nil
}

// Validate ensures every referenced group carries the settings the
// registry needs. Missing required keys are startup-fatal.
func (c *Config) Validate(referenced []string) error {
	for _, name := range referenced {
		settings, ok := c.Groups[name]
		if !ok {
			return registry.Newf(registry.ErrorTypeConfig, "no configuration for group %q", name)
		}
		if settings.BaseURL == "" {
			return registry.Newf(registry.ErrorTypeConfig, "group %q has no base-url", name).
				WithContext("suggestion", "set groups."+name+".base-url in the config file")
		}
		if _, err := settings.ParsedTimeout(); err != nil {
			return err
		}
	}
	return nil
}
