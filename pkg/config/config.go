// Package config provides configuration types and loading for clio.
//
// Configuration comes from a YAML file with environment variable expansion
// (${VAR}, ${VAR:-default}, $VAR) plus optional .env files. Every section
// has SetDefaults and Validate methods; a zero Config with defaults applied
// is fully usable apart from the API key.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Store    StoreConfig    `yaml:"store"`
	Agent    AgentConfig    `yaml:"agent"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	// Provider type. Currently "mistral".
	Provider string `yaml:"provider,omitempty"`

	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Host        string  `yaml:"host,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`

	// Timeout in seconds for a single completion round-trip.
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries for transient failures inside the HTTP client.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "mistral"
	}
	if c.Model == "" {
		c.Model = "mistral-small-latest"
	}
	if c.Host == "" {
		c.Host = "https://api.mistral.ai/v1"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}

func (c *LLMConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("llm: api_key is required (set MISTRAL_API_KEY)")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm: temperature must be in [0, 2], got %v", c.Temperature)
	}
	return nil
}

// EmbedderConfig configures the embeddings provider used by the index store.
type EmbedderConfig struct {
	Model     string `yaml:"model,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	Host      string `yaml:"host,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
	BatchSize int    `yaml:"batch_size,omitempty"`
	Timeout   int    `yaml:"timeout,omitempty"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "mistral-embed"
	}
	if c.Host == "" {
		c.Host = "https://api.mistral.ai/v1"
	}
	if c.Dimension == 0 {
		c.Dimension = 1024
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
}

func (c *EmbedderConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("embedder: api_key is required (set MISTRAL_API_KEY)")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("embedder: dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

// StoreConfig configures the deduplicating index store.
type StoreConfig struct {
	// MaxDocuments caps the number of embedded chunks. Ingestion batches
	// that would exceed it are truncated.
	MaxDocuments int `yaml:"max_documents,omitempty"`

	// ChunkSize is the target chunk size in characters.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int `yaml:"chunk_overlap,omitempty"`

	// PersistPath is where the index and its metadata sidecar are written.
	// Empty disables persistence.
	PersistPath string `yaml:"persist_path,omitempty"`

	// SearchLimit is the default number of hits returned by search.
	SearchLimit int `yaml:"search_limit,omitempty"`
}

func (c *StoreConfig) SetDefaults() {
	if c.MaxDocuments == 0 {
		c.MaxDocuments = 10000
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
	if c.SearchLimit == 0 {
		c.SearchLimit = 5
	}
}

func (c *StoreConfig) Validate() error {
	if c.MaxDocuments < 0 {
		return fmt.Errorf("store: max_documents must be non-negative, got %d", c.MaxDocuments)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("store: chunk_overlap (%d) must be less than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// AgentConfig configures the orchestration loop.
type AgentConfig struct {
	// MaxIterations bounds the number of model rounds. Reaching it without
	// a final answer returns a fixed sentinel string.
	MaxIterations int `yaml:"max_iterations,omitempty"`
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
}

func (c *AgentConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("agent: max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	return nil
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// MaxUploadBytes is the largest accepted upload.
	MaxUploadBytes int64 `yaml:"max_upload_bytes,omitempty"`

	// UploadDir holds temporary uploads during extraction.
	UploadDir string `yaml:"upload_dir,omitempty"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 16 << 20
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Port)
	}
	return nil
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.Store.SetDefaults()
	c.Agent.SetDefaults()
	c.Server.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Embedder.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}
