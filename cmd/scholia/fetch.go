package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholia-ai/scholia/pkg/arxiv"
)

var topicsFile string

var fetchCmd = &cobra.Command{
	Use:   "fetch [topic]...",
	Short: "Fetch new arXiv submissions matching topics and ingest them",
	Long: `Fetch downloads the arXiv new-submissions listing, filters it by the
given topics (or a topics file with one topic per line, # comments
allowed), and ingests the matching papers' metadata.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics := args
		if topicsFile != "" {
			f, err := os.Open(topicsFile)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", topicsFile, err)
			}
			loaded, err := arxiv.LoadTopics(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to read topics: %w", err)
			}
			topics = append(topics, loaded...)
		}
		if len(topics) == 0 {
			return fmt.Errorf("no topics given; pass topics as arguments or use --topics-file")
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		records, err := a.Fetcher.Fetch(ctx, topics)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No matching papers found.")
			return nil
		}

		printResults(a.Pipeline.IngestRecords(ctx, records))
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&topicsFile, "topics-file", "", "file with one topic per line")
}
