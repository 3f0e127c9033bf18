package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scholia-ai/scholia/internal/app"
	"github.com/scholia-ai/scholia/internal/config"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/logger/console"
)

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "scholia",
	Short: "Research paper knowledge graph and query engine",
	Long: `Scholia ingests research papers into a knowledge graph of papers,
authors, institutions, and research fields, indexes their embeddings,
and answers natural-language questions by combining graph traversal
with semantic search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(console.NewConsoleBackend(console.ConsoleBackendParams{
			Debug:  debug,
			Prefix: "scholia",
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(citeCmd)
}

// newApp loads the configuration and assembles the application for a
// command invocation.
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
