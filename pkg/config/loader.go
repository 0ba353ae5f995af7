package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, expands environment variable references,
// applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes with env expansion, defaults, and
// validation.
func Parse(data []byte) (*Config, error) {
	expanded := ExpandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnvFallbacks()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config built purely from defaults and the environment.
func Default() (*Config, error) {
	var cfg Config
	cfg.applyEnvFallbacks()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvFallbacks fills credentials from well-known environment variables
// when the config file leaves them empty.
func (c *Config) applyEnvFallbacks() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("MISTRAL_API_KEY")
	}
	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = c.LLM.APIKey
	}
}
