package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Database    DatabaseConfig            `json:"database"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Retrieval   RetrievalConfig           `json:"retrieval"`
	Generation  GenerationConfig          `json:"generation"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	DataDir           string `json:"data_dir"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout"` // minutes
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// RedisConfig is optional; an empty host disables the query-embedding cache.
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type RetrievalConfig struct {
	K              int    `json:"k"`
	Metric         string `json:"metric"` // cosine | l2 | ip
	ChunkSize      int    `json:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDim   int    `json:"embedding_dim"`
}

type GenerationConfig struct {
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	Temperature     float32 `json:"temperature"`
	MaxHistoryTurns int     `json:"max_history_turns"`
	TypingDelayMS   int     `json:"typing_delay_ms"`
}

// apiKeyEnvVars maps provider names to the environment variable consulted when
// the config file carries no api_key.
var apiKeyEnvVars = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
}

// Load reads configuration from the provided path (defaults to config.json),
// applies defaults and rejects any missing required credential so a
// misconfigured deployment aborts at startup rather than at first request.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8080"
	}
	if c.BasicConfig.DataDir == "" {
		c.BasicConfig.DataDir = "data"
	}
	if c.BasicConfig.MinWorkers <= 0 {
		c.BasicConfig.MinWorkers = 2
	}
	if c.BasicConfig.MaxWorkers < c.BasicConfig.MinWorkers {
		c.BasicConfig.MaxWorkers = c.BasicConfig.MinWorkers
	}
	if c.BasicConfig.QueueSize <= 0 {
		c.BasicConfig.QueueSize = 64
	}
	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 3
	}
	if c.Retrieval.Metric == "" {
		c.Retrieval.Metric = "cosine"
	}
	if c.Retrieval.ChunkSize <= 0 {
		c.Retrieval.ChunkSize = 500
	}
	if c.Retrieval.ChunkOverlap < 0 {
		c.Retrieval.ChunkOverlap = 0
	}
	if c.Retrieval.EmbeddingModel == "" {
		c.Retrieval.EmbeddingModel = "text-embedding-004"
	}
	if c.Retrieval.EmbeddingDim <= 0 {
		c.Retrieval.EmbeddingDim = 768
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "gemini"
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.3
	}
	if c.Generation.MaxHistoryTurns <= 0 {
		c.Generation.MaxHistoryTurns = 10
	}
	if c.Generation.TypingDelayMS <= 0 {
		c.Generation.TypingDelayMS = 10
	}

	for name, prov := range c.Providers {
		if prov.APIKey == "" {
			if env, ok := apiKeyEnvVars[name]; ok {
				prov.APIKey = os.Getenv(env)
				c.Providers[name] = prov
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must be configured")
	}

	switch c.Retrieval.Metric {
	case "cosine", "l2", "ip":
	default:
		return fmt.Errorf("unsupported retrieval metric: %s", c.Retrieval.Metric)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}

	genProvider := c.Generation.Provider
	prov, ok := c.Providers[genProvider]
	if !ok {
		return fmt.Errorf("generation provider %q not configured", genProvider)
	}
	if prov.APIKey == "" {
		return fmt.Errorf("api key for provider %q missing (set providers.%s.api_key or %s)",
			genProvider, genProvider, apiKeyEnvVars[genProvider])
	}

	// Embeddings always go through gemini, regardless of the chat provider.
	if emb, ok := c.Providers["gemini"]; !ok || emb.APIKey == "" {
		return fmt.Errorf("gemini api key required for embeddings (set providers.gemini.api_key or GEMINI_API_KEY)")
	}
	return nil
}

// Provider returns the resolved configuration for the named provider.
func (c *Config) Provider(name string) (ProviderConfig, error) {
	prov, ok := c.Providers[strings.TrimSpace(name)]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("provider %s not configured", name)
	}
	return prov, nil
}
