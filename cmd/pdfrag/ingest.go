package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pdf-rag/internal/rag"
)

func ingestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest [file.pdf ...]",
		Short: "Ingest PDF files into the vector store",
		Long: `Parses, chunks and embeds the given PDFs and stores their chunks.
With --dir every PDF directly inside the directory is ingested.
Ingesting a file twice stores its chunks twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && len(args) == 0 {
				return errors.New("give at least one PDF or --dir")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var results []rag.FileResult
			if dir != "" {
				results, err = a.rag.IngestDir(ctx, dir)
				if err != nil {
					return err
				}
			}
			for _, path := range args {
				res, err := a.rag.IngestFile(ctx, path)
				if err != nil {
					results = append(results, rag.FileResult{Filename: filepath.Base(path), Status: rag.StatusError, Error: err.Error()})
					continue
				}
				results = append(results, rag.FileResult{
					Filename: filepath.Base(path),
					Status:   rag.StatusSuccess,
					Chunks:   res.Chunks,
					Pages:    res.Document.Pages,
				})
			}
			return printResults(results)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "ingest every PDF in this directory")
	return cmd
}

func printResults(results []rag.FileResult) error {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()

	failed := 0
	for _, r := range results {
		if r.Status == rag.StatusSuccess {
			fmt.Printf("%s %s: %d pages, %d chunks\n", ok("OK"), r.Filename, r.Pages, r.Chunks)
			continue
		}
		failed++
		fmt.Printf("%s %s: %s\n", bad("FAIL"), r.Filename, r.Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}
