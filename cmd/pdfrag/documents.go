package main

import (
	"context"

	"github.com/spf13/cobra"

	"pdf-rag/internal/helper"
)

func documentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.rag.ListDocuments(ctx)
			if err != nil {
				return err
			}
			helper.PrettyPrint(docs)
			return nil
		},
	}
}
