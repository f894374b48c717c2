package node

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PRESALE_SALE_HARDCAP.
const EnvPrefix = "PRESALE_"

// LoadConfig parses a YAML configuration on top of DefaultConfig. Unknown
// keys are rejected.
func LoadConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

// LoadConfigFile reads and parses the YAML file at path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadConfig(data)
}

// ApplyEnv overrides cfg from environment variables carrying EnvPrefix.
// A nil environ reads the process environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path when non-empty, then environment overrides. The result is validated.
func Load(path string, environ map[string]string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		def := DefaultConfig()
		cfg = &def
	}
	if err := ApplyEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
