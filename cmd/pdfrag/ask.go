package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the ingested documents",
		Args:  cobra.MinimumNArgs(1),
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

			question := strings.Join(args, " ")
			resp, err := a.rag.Answer(ctx, question, k)
			if err != nil {
				return err
			}

			heading := color.New(color.FgCyan, color.Bold).SprintFunc()
			muted := color.New(color.Faint).SprintFunc()

			fmt.Println(heading("Question:"))
			fmt.Printf("%s\n\n", resp.Question)
			fmt.Println(heading("Sources:"))
			for i, s := range resp.Sources {
				fmt.Printf("%s %s\n", muted(fmt.Sprintf("[%d] %s #%d (%.3f)", i+1, s.Chunk.DocumentID, s.Chunk.Index, s.Similarity)), oneLine(s.Chunk.Content, 120))
			}
			fmt.Println()
			fmt.Println(heading("Answer:"))
			fmt.Printf("%s\n", resp.Answer)
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	return cmd
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
