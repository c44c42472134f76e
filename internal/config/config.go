// Package config loads relist settings from the environment.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/caarlos0/env/v8"
	"github.com/invopop/jsonschema"
)

// Config holds the settings shared by all commands. Command line flags
// override the environment.
type Config struct {
	Debug         bool   `env:"RELIST_DEBUG" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	NoColor       bool   `env:"RELIST_NO_COLOR" json:"noColor" jsonschema:"title=No Color,description=Render listings without colour"`
	FollowTargets bool   `env:"RELIST_FOLLOW_TARGETS" json:"followTargets" jsonschema:"title=Follow Targets,description=Also decode at in-section branch and reference targets"`
	DemangleCache int    `env:"RELIST_DEMANGLE_CACHE" envDefault:"4096" json:"demangleCache" jsonschema:"title=Demangle Cache,description=Number of demangled names to cache (0 disables the cache),minimum=0"`
	EntryFallback uint64 `env:"RELIST_ENTRY_FALLBACK" envDefault:"4096" json:"entryFallback" jsonschema:"title=Entry Fallback,description=Offset from the section base decoded when the entry point lies below it"`
	LogLevel      string `env:"RELIST_LOG_LEVEL" envDefault:"info" json:"logLevel" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error"`
	Profile       bool   `env:"RELIST_PROFILE" json:"profile" jsonschema:"title=Profile,description=Serve pprof on localhost:6060"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if c.DemangleCache < 0 {
		return Config{}, fmt.Errorf("RELIST_DEMANGLE_CACHE must not be negative, got %d", c.DemangleCache)
	}
	return c, nil
}

// Schema returns the JSON schema describing Config.
func Schema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return bts, nil
}
