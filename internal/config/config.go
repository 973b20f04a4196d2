package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"pdf-rag/internal/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StoreChromem  = "chromem"
	StorePGVector = "pgvector"

	DriverSQLite   = "sqlite"
	DriverPgDriver = "pgdriver"
	DriverPq       = "pq"
)

type Config struct {
	Server       ServerConfig      `yaml:"server"`
	RAG          RAGConfig         `yaml:"rag"`
	EmbedLLM     LLMConfig         `yaml:"embed_llm"`
	InferenceLLM LLMConfig         `yaml:"inference_llm"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	Database     DatabaseConfig    `yaml:"database"`
	Log          LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
	PDFDir  string `yaml:"pdf_dir"`
}

type RAGConfig struct {
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	TopK           int    `yaml:"top_k"`
	PromptTemplate string `yaml:"prompt_template"`
}

// LLMConfig describes one model endpoint. Key is never read from the file,
// only from the environment variable named by APIKeyEnv.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	BatchSize   int     `yaml:"batch_size"`
	Key         string  `yaml:"-"`
}

type VectorStoreConfig struct {
	Type          string `yaml:"type"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

// DatabaseConfig configures the document registry, and the chunk table
// when the pgvector store is selected.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
// Environment overrides and API keys are applied afterwards; call Validate
// before using the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read %s: %v", models.ErrConfig, path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", models.ErrConfig, path, err)
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    5000,
			GinMode: "release",
			PDFDir:  "./data/pdfs",
		},
		RAG: RAGConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         models.DefaultTopK,
		},
		EmbedLLM: LLMConfig{
			Provider:  ProviderOpenAI,
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 64,
		},
		InferenceLLM: LLMConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.3,
			TimeoutSecs: 60,
		},
		VectorStore: VectorStoreConfig{
			Type:       StoreChromem,
			Path:       "./vector_store",
			Collection: "documents",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.PDFDir == "" {
		cfg.Server.PDFDir = def.Server.PDFDir
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = def.Server.GinMode
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = def.RAG.ChunkSize
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.RAG.PromptTemplate == "" {
		cfg.RAG.PromptTemplate = models.AnswerPromptTemplate
	}
	for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.InferenceLLM} {
		if llm.Provider == "" {
			llm.Provider = ProviderOpenAI
		}
		if llm.Provider == ProviderOpenAI && llm.APIKeyEnv == "" {
			llm.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.EmbedLLM.BatchSize == 0 {
		cfg.EmbedLLM.BatchSize = def.EmbedLLM.BatchSize
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = StoreChromem
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = def.VectorStore.Path
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = def.VectorStore.Collection
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PDFRAG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PDFRAG_PDF_DIR"); v != "" {
		cfg.Server.PDFDir = v
	}
	if v := os.Getenv("PDFRAG_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.InferenceLLM} {
		if llm.APIKeyEnv != "" {
			llm.Key = os.Getenv(llm.APIKeyEnv)
		}
	}
}

// Validate reports the first problem that would make the process unusable.
// Hosted providers need an API key.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: rag.chunk_size must be positive", models.ErrConfig)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: rag.chunk_overlap must be in [0, chunk_size)", models.ErrConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server.port %d", models.ErrConfig, c.Server.Port)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: server.gin_mode must be debug, release or test", models.ErrConfig)
	}
	for name, llm := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "inference_llm": c.InferenceLLM} {
		switch llm.Provider {
		case ProviderOpenAI:
			if llm.Key == "" {
				return fmt.Errorf("%w: %s: environment variable %s is not set", models.ErrConfig, name, llm.APIKeyEnv)
			}
		case ProviderOllama:
		default:
			return fmt.Errorf("%w: %s: unknown provider %q", models.ErrConfig, name, llm.Provider)
		}
		if llm.Model == "" {
			return fmt.Errorf("%w: %s: model is required", models.ErrConfig, name)
		}
	}
	switch c.VectorStore.Type {
	case StoreChromem:
	case StorePGVector:
		if c.Database.Driver == DriverSQLite {
			return fmt.Errorf("%w: pgvector store needs a postgres database driver", models.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector_store.type %q", models.ErrConfig, c.VectorStore.Type)
	}
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPgDriver, DriverPq:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for %s", models.ErrConfig, c.Database.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", models.ErrConfig, c.Database.Driver)
	}
	if k := c.VectorStore.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("%w: vector_store.encryption_key must be 32 bytes", models.ErrConfig)
	}
	return nil
}

// RegistryPath is the SQLite registry file kept beside the chromem directory.
func (c *Config) RegistryPath() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return c.VectorStore.Path + "/registry.db"
}
