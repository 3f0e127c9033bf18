package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholia-ai/scholia/pkg/ingest"
	"github.com/scholia-ai/scholia/pkg/loader"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest documents or directories into the knowledge graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		var results []ingest.Result
		for _, path := range args {
			info, err := os.Stat(path)
			switch {
			case err == nil && info.IsDir():
				dirResults, err := a.Pipeline.ProcessDirectory(ctx, path, a.Source)
				if err != nil {
					return err
				}
				results = append(results, dirResults...)
			default:
				// Single files and URLs go straight to the pipeline.
				file := loader.NewDocumentFile(loader.NewDocumentFileParams{
					ID:       path,
					FilePath: path,
					Loader:   a.Source,
				})
				results = append(results, a.Pipeline.IngestAll(ctx, []loader.DocumentFile{file})...)
			}
		}

		printResults(results)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <zotero.csv>",
	Short: "Import paper metadata from a Zotero CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		results, err := a.Pipeline.ProcessMetadataCSV(ctx, f)
		if err != nil {
			return err
		}

		printResults(results)
		return nil
	},
}

func printResults(results []ingest.Result) {
	succeeded := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("FAIL  %s: %v\n", r.Source, r.Err)
			continue
		}
		succeeded++
		fmt.Printf("OK    %s -> %s\n", r.Source, r.PaperID)
	}
	fmt.Printf("%d of %d succeeded\n", succeeded, len(results))
}
