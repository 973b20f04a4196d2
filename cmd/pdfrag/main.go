package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-rag/internal/config"
	"pdf-rag/internal/helper"
)

const defaultConfigPath = "./configs/config.yaml"

var configPath string

func main() {
	helper.SetupLogger("info", "console")

	root := &cobra.Command{
		Use:          "pdfrag",
		Short:        "Ask questions about your PDF documents",
		Long:         "pdfrag ingests PDFs into a vector store and answers questions from their content with a hosted language model.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config.yaml")

	root.AddCommand(serveCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(askCmd())
	root.AddCommand(documentsCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(restoreCmd())
	root.AddCommand(resetCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads .env, the YAML config and the environment, and fails fast
// on anything unusable
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	helper.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Str("path", configPath).Str("vector_store", cfg.VectorStore.Type).Msg("Loaded config")
	return cfg, nil
}
