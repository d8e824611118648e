package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/coursesearch/ai"
	"github.com/poiesic/coursesearch/ingestion"
)

// ErrInvalidConfig is returned when a loaded configuration fails
// validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// Config is the application configuration.
type Config struct {
	Catalog   CatalogConfig   `toml:"catalog"`
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Server    ServerConfig    `toml:"server"`
	Search    SearchConfig    `toml:"search"`
	Logging   LoggingConfig   `toml:"logging"`
}

type CatalogConfig struct {
	// Raw is the raw snapshot. It is never modified.
	Raw string `toml:"raw" validate:"required"`
	// Embedded is the embedded snapshot cache.
	Embedded string `toml:"embedded" validate:"required"`
	// Fingerprint is the sidecar policy, "ignore" or "enforce".
	Fingerprint string `toml:"fingerprint" validate:"omitempty,oneof=ignore enforce"`
}

type StorageConfig struct {
	// Path is the badger directory. Empty keeps the store in memory.
	Path string `toml:"path"`
	// PoolSize is the number of store workers. 0 uses one per CPU.
	PoolSize      int    `toml:"pool_size" validate:"gte=0"`
	ReadyAttempts int    `toml:"ready_attempts" validate:"min=1"`
	ReadyDelay    string `toml:"ready_delay" validate:"required"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider" validate:"oneof=openai gemini"`
	Host       string `toml:"host"`
	Model      string `toml:"model" validate:"required"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions" validate:"min=1"`
	BatchSize  int    `toml:"batch_size" validate:"min=1"`
	// MaxAttempts bounds the attempts of the catalog embedding call.
	MaxAttempts int `toml:"max_attempts" validate:"min=1"`
}

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
	// Frontend is a directory of static files served at /. Empty disables it.
	Frontend string `toml:"frontend"`
	// RateLimit is in searches per second. 0 disables limiting.
	RateLimit float64 `toml:"rate_limit" validate:"gte=0"`
	Burst     int     `toml:"burst" validate:"gte=0"`
}

type SearchConfig struct {
	MaxQueryLength int `toml:"max_query_length" validate:"min=1"`
}

type LoggingConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// NewDefaultConfig returns the configuration used when no file is given.
func NewDefaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Catalog: CatalogConfig{
			Raw:         "courses.json",
			Embedded:    "embedded_courses.json",
			Fingerprint: "ignore",
		},
		Storage: StorageConfig{
			ReadyAttempts: 30,
			ReadyDelay:    "1s",
		},
		Embedding: EmbeddingConfig{
			Provider:    aiDefaults.Provider,
			Host:        aiDefaults.EmbeddingHost,
			Model:       aiDefaults.EmbeddingModel,
			Dimensions:  aiDefaults.Dimensions,
			BatchSize:   aiDefaults.BatchSize,
			MaxAttempts: 1,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 10,
			Burst:     20,
		},
		Search: SearchConfig{
			MaxQueryLength: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Empty paths are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("COURSESEARCH_COURSES"); v != "" {
		config.Catalog.Raw = v
	}
	if v := os.Getenv("COURSESEARCH_EMBEDDED"); v != "" {
		config.Catalog.Embedded = v
	}
	if v := os.Getenv("COURSESEARCH_DB"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("COURSESEARCH_ADDR"); v != "" {
		config.Server.Addr = v
	}
	if v := os.Getenv("COURSESEARCH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("COURSESEARCH_EMBEDDING_PROVIDER"); v != "" {
		config.Embedding.Provider = v
	}
	if v := os.Getenv("COURSESEARCH_EMBEDDING_HOST"); v != "" {
		config.Embedding.Host = v
	}
	if v := os.Getenv("COURSESEARCH_EMBEDDING_MODEL"); v != "" {
		config.Embedding.Model = v
	}
	if v := os.Getenv("COURSESEARCH_READY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Storage.ReadyAttempts = n
		}
	}

	// Vendor keys follow the vendors' own variable names.
	switch config.Embedding.Provider {
	case ai.ProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			config.Embedding.APIKey = key
		} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			config.Embedding.APIKey = key
		}
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			config.Embedding.APIKey = key
		}
	}
}

// Validate checks every section and the values that need parsing.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.ReadyDelay(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ReadyDelay parses the delay between readiness pings.
func (c *Config) ReadyDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Storage.ReadyDelay)
	if err != nil {
		return 0, fmt.Errorf("storage.ready_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("storage.ready_delay must not be negative")
	}
	return d, nil
}

// FingerprintPolicy returns the parsed catalog.fingerprint setting.
func (c *Config) FingerprintPolicy() ingestion.FingerprintPolicy {
	policy, _ := ingestion.ParseFingerprintPolicy(c.Catalog.Fingerprint)
	return policy
}

// AIConfig builds the embedding provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.Embedding.Provider),
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithDimensions(c.Embedding.Dimensions),
		ai.WithBatchSize(c.Embedding.BatchSize),
	)
}
