package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pdf-rag/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 200 {
		t.Errorf("chunking defaults = %d/%d, want 1000/200", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.TopK != models.DefaultTopK {
		t.Errorf("top_k = %d, want %d", cfg.RAG.TopK, models.DefaultTopK)
	}
	if cfg.InferenceLLM.Key != "sk-test" {
		t.Errorf("inference key = %q, want it read from OPENAI_API_KEY", cfg.InferenceLLM.Key)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with key should validate: %v", err)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeConfig(t, `
server:
  port: 8088
rag:
  chunk_size: 500
  chunk_overlap: 50
vector_store:
  path: /tmp/vs
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("port = %d, want 8088", cfg.Server.Port)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 {
		t.Errorf("chunking = %d/%d, want 500/50", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.Server.PDFDir != "./data/pdfs" {
		t.Errorf("pdf_dir = %q, want default kept", cfg.Server.PDFDir)
	}
	if got := cfg.RegistryPath(); got != "/tmp/vs/registry.db" {
		t.Errorf("RegistryPath = %q", got)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	if _, err := LoadConfig(path); !errors.Is(err, models.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PDFRAG_PORT", "9000")
	t.Setenv("PDFRAG_PDF_DIR", "/srv/pdfs")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.PDFDir != "/srv/pdfs" {
		t.Errorf("env overrides not applied: port=%d dir=%q", cfg.Server.Port, cfg.Server.PDFDir)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); !errors.Is(err, models.ErrConfig) {
		t.Fatalf("expected ErrConfig for missing key, got %v", err)
	}
}

func TestValidate_OllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
  api_key_env: ""
inference_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: llama3
  api_key_env: ""
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ollama config should validate without key: %v", err)
	}
}

func TestValidate_Overlap(t *testing.T) {
	cfg := Default()
	cfg.EmbedLLM.Key = "k"
	cfg.InferenceLLM.Key = "k"

	cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize
	if err := cfg.Validate(); !errors.Is(err, models.ErrConfig) {
		t.Fatalf("overlap == chunk size should fail, got %v", err)
	}

	cfg.RAG.ChunkOverlap = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero overlap should be valid: %v", err)
	}
}

func TestValidate_PGVectorNeedsPostgres(t *testing.T) {
	cfg := Default()
	cfg.EmbedLLM.Key = "k"
	cfg.InferenceLLM.Key = "k"
	cfg.VectorStore.Type = StorePGVector
	if err := cfg.Validate(); !errors.Is(err, models.ErrConfig) {
		t.Fatalf("pgvector with sqlite should fail, got %v", err)
	}

	cfg.Database.Driver = DriverPgDriver
	if err := cfg.Validate(); !errors.Is(err, models.ErrConfig) {
		t.Fatalf("pgdriver without dsn should fail, got %v", err)
	}

	cfg.Database.DSN = "postgres://localhost:5432/rag"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidate_EncryptionKeyLength(t *testing.T) {
	cfg := Default()
	cfg.EmbedLLM.Key = "k"
	cfg.InferenceLLM.Key = "k"
	cfg.VectorStore.EncryptionKey = "short"
	if err := cfg.Validate(); !errors.Is(err, models.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestValidate_GinMode(t *testing.T) {
	cfg := Default()
	cfg.EmbedLLM.Key, cfg.InferenceLLM.Key = "k", "k"
	cfg.Server.GinMode = "verbose"
	if err := cfg.Validate(); !errors.Is(err, models.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
