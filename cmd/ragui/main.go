package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pdf-rag/internal/client"
	"pdf-rag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		apiURL  string
		topK    int
		timeout time.Duration
	)

	defaultURL := os.Getenv("PDFRAG_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5000"
	}

	root := &cobra.Command{
		Use:          "ragui",
		Short:        "Terminal frontend for the pdf-rag API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client.NewClient(apiURL, timeout)
			p := tea.NewProgram(tui.New(api, topK, timeout), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("tui error: %w", err)
			}
			return nil
		},
	}
	root.Flags().StringVar(&apiURL, "api", defaultURL, "base URL of the pdf-rag API (env PDFRAG_API_URL)")
	root.Flags().IntVarP(&topK, "top-k", "k", 0, "chunks to retrieve per question (0 uses the server default)")
	root.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "timeout for each API call")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
