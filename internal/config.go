package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/llm"
	"github.com/starford/souschef/internal/retrieval"
	"github.com/starford/souschef/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Embedding providers.
const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderHash   = "hash"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Documents  DocumentsConfig   `yaml:"documents"`
	Index      IndexConfig       `yaml:"index"`
	Embedding  EmbeddingConfig   `yaml:"embedding"`
	Extraction ExtractionConfig  `yaml:"extraction"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Documents, &c.Index, &c.Embedding, &c.Extraction, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// Heartbeat is the SSE keepalive interval.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Heartbeat, validation.Min(time.Duration(0))),
	)
}

// DocumentsConfig describes the cookbook document store.
type DocumentsConfig struct {
	Path     string        `yaml:"path"`
	Includes []string      `yaml:"includes"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the documents configuration.
func (c *DocumentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// IndexConfig holds the SQLite path and the chunking and search settings.
type IndexConfig struct {
	Path         string `yaml:"path"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	Workers      int    `yaml:"workers"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ChunkSize, validation.Required, validation.Min(50)),
		validation.Field(&c.ChunkOverlap, validation.Min(0)),
		validation.Field(&c.TopK, validation.Required, validation.Min(1), validation.Max(20)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(32)),
	); err != nil {
		return err
	}
	return c.Segmenter().Validate()
}

// Segmenter returns the chunking parameters.
func (c *IndexConfig) Segmenter() index.Segmenter {
	return index.Segmenter{Size: c.ChunkSize, Overlap: c.ChunkOverlap}
}

// EmbeddingConfig selects the embedding capability. The hash provider runs
// offline and needs no model.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Dimension      int           `yaml:"dimension"`
	DocumentPrefix string        `yaml:"document_prefix"`
	QueryPrefix    string        `yaml:"query_prefix"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(EmbeddingProviderOpenAI, EmbeddingProviderHash)),
		validation.Field(&c.Model, validation.When(c.Provider == EmbeddingProviderOpenAI, validation.Required)),
		validation.Field(&c.Dimension, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ExtractionConfig configures the structured-output model.
type ExtractionConfig struct {
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the extraction configuration.
func (c *ExtractionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	seg := index.DefaultSegmenter
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:      8080,
				Heartbeat: 15 * time.Second,
			},
		},
		Documents: DocumentsConfig{
			Path:     "./cookbooks",
			Includes: storage.DefaultIncludes,
			Watch:    true,
			Debounce: index.DefaultDebounce,
		},
		Index: IndexConfig{
			Path:         "./souschef.db",
			ChunkSize:    seg.Size,
			ChunkOverlap: seg.Overlap,
			TopK:         retrieval.DefaultTopK,
			Workers:      4,
		},
		Embedding: EmbeddingConfig{
			Provider: EmbeddingProviderOpenAI,
			Model:    "text-embedding-3-small",
			Timeout:  30 * time.Second,
		},
		Extraction: ExtractionConfig{
			Model:   "gpt-4.1-mini",
			Timeout: 60 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

// NewEmbedder builds the configured embedding capability.
func (c *Config) NewEmbedder() llm.Embedder {
	if c.Embedding.Provider == EmbeddingProviderHash {
		return llm.NewHashEmbedder(c.Embedding.Dimension)
	}
	return llm.NewClient(llm.ClientOptions{
		BaseURL:        c.Embedding.BaseURL,
		APIKey:         c.Embedding.APIKey,
		EmbeddingModel: c.Embedding.Model,
		DocumentPrefix: c.Embedding.DocumentPrefix,
		QueryPrefix:    c.Embedding.QueryPrefix,
		Timeout:        c.Embedding.Timeout,
	})
}

// NewExtractor builds the structured-output capability.
func (c *Config) NewExtractor() llm.Extractor {
	return llm.NewClient(llm.ClientOptions{
		BaseURL:   c.Extraction.BaseURL,
		APIKey:    c.Extraction.APIKey,
		ChatModel: c.Extraction.Model,
		Timeout:   c.Extraction.Timeout,
	})
}
