package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/souschef/internal/llm"
	pkgconfig "github.com/starford/souschef/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestIndexConfig_OverlapMustBeSmallerThanChunk(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Index.ChunkSize = 100
	cfg.Index.ChunkOverlap = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("overlap equal to chunk size should fail")
	}
}

func TestIndexConfig_TopKBounds(t *testing.T) {
	for _, k := range []int{0, 21} {
		cfg := NewDefaultConfig()
		cfg.Index.TopK = k
		if err := cfg.Validate(); err == nil {
			t.Errorf("top_k %d should fail", k)
		}
	}
}

func TestEmbeddingConfig_Providers(t *testing.T) {
	cases := []struct {
		name    string
		cfg     EmbeddingConfig
		wantErr bool
	}{
		{"openai with model", EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"}, false},
		{"openai without model", EmbeddingConfig{Provider: "openai"}, true},
		{"hash without model", EmbeddingConfig{Provider: "hash"}, false},
		{"unknown provider", EmbeddingConfig{Provider: "magic", Model: "x"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewEmbedderSelectsProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Embedding.Provider = EmbeddingProviderHash
	cfg.Embedding.Dimension = 32
	if _, ok := cfg.NewEmbedder().(*llm.HashEmbedder); !ok {
		t.Error("hash provider should build a HashEmbedder")
	}
	cfg.Embedding.Provider = EmbeddingProviderOpenAI
	if got := cfg.NewEmbedder().ModelName(); got != "text-embedding-3-small" {
		t.Errorf("model = %q", got)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("SOUSCHEF_TEST_KEY", "sk-test")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  log_level: debug
  http:
    port: 9090
documents:
  path: /tmp/books
  debounce: 2s
embedding:
  provider: hash
  dimension: 128
extraction:
  model: local-model
  base_url: http://localhost:11434/v1
  api_key: ${SOUSCHEF_TEST_KEY}
auth:
  mode: token
  token: secret
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.HTTP.Heartbeat != 15*time.Second {
		t.Errorf("http = %+v", cfg.App.HTTP)
	}
	if cfg.Documents.Debounce != 2*time.Second || !cfg.Documents.Watch {
		t.Errorf("documents = %+v", cfg.Documents)
	}
	if cfg.Extraction.APIKey != "sk-test" {
		t.Errorf("api key = %q, want expanded env", cfg.Extraction.APIKey)
	}
	if cfg.Index.ChunkSize != 1000 || cfg.Embedding.Dimension != 128 {
		t.Errorf("index = %+v, embedding = %+v", cfg.Index, cfg.Embedding)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("auth should be enabled")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embedding:\n  provider: magic\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	err := pkgconfig.Load(path, cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Load = %v, want validation error", err)
	}
}
