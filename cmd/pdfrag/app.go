package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"pdf-rag/internal/chromemdb"
	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/llmservice"
	"pdf-rag/internal/parser"
	"pdf-rag/internal/rag"
)

// app holds the handles shared by every command
type app struct {
	cfg      *config.Config
	rag      *rag.RAG
	db       *bun.DB
	registry *db.Registry
	vectors  *chromemdb.VectorDBManager // nil with the pgvector store
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var store rag.VectorStore
	switch cfg.VectorStore.Type {
	case config.StorePGVector:
		bdb, err := db.Connect(&cfg.Database, "")
		if err != nil {
			return nil, err
		}
		a.db = bdb
		if err := db.InitDB(ctx, bdb, true); err != nil {
			a.Close()
			return nil, err
		}
		store = db.NewPGVectorStore(bdb)
	default:
		vectors, err := chromemdb.NewVectorDBManager(cfg.VectorStore.Path, cfg.VectorStore.Collection, cfg.VectorStore.Compress, cfg.VectorStore.EncryptionKey)
		if err != nil {
			return nil, err
		}
		a.vectors = vectors
		store = vectors

		bdb, err := db.Connect(&cfg.Database, cfg.RegistryPath())
		if err != nil {
			return nil, err
		}
		a.db = bdb
		if err := db.InitDB(ctx, bdb, false); err != nil {
			a.Close()
			return nil, err
		}
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	generator, err := llmservice.NewClient(&cfg.InferenceLLM)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = db.NewRegistry(a.db)
	a.rag, err = rag.NewRAG(rag.Deps{
		Loader:         parser.PDFLoader{},
		Splitter:       parser.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		Embedder:       embedder,
		Generator:      generator,
		Store:          store,
		Registry:       a.registry,
		TopK:           cfg.RAG.TopK,
		PromptTemplate: cfg.RAG.PromptTemplate,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// exportable returns the chromem store, or an error for the pgvector backend
func (a *app) exportable() (*chromemdb.VectorDBManager, error) {
	if a.vectors == nil {
		return nil, errors.New("backup and restore need the chromem vector store, use pg_dump for postgres")
	}
	return a.vectors, nil
}

// reset drops the vector collection and every table
func (a *app) reset(ctx context.Context) error {
	if a.vectors != nil {
		if err := a.vectors.DeleteCollection(); err != nil {
			return err
		}
	}
	if err := db.DropTables(ctx, a.db); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return nil
}

func (a *app) Close() {
	var err error
	switch {
	case a.registry != nil:
		err = a.registry.Close()
	case a.db != nil:
		err = a.db.Close()
	}
	if err != nil {
		log.Warn().Err(err).Msg("Error closing database")
	}
}
