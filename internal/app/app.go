// Package app assembles the application from its configuration: AI
// provider, graph store, embedding index, loaders, and the core
// pipeline, query engine, and summary generator.
package app

import (
	"context"
	"fmt"

	"github.com/scholia-ai/scholia/internal/config"
	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/ai/ollama"
	"github.com/scholia-ai/scholia/pkg/ai/openai"
	"github.com/scholia-ai/scholia/pkg/arxiv"
	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/graph/memory"
	pgxstore "github.com/scholia-ai/scholia/pkg/graph/pgx"
	"github.com/scholia-ai/scholia/pkg/ingest"
	"github.com/scholia-ai/scholia/pkg/loader"
	ioloader "github.com/scholia-ai/scholia/pkg/loader/io"
	s3loader "github.com/scholia-ai/scholia/pkg/loader/s3"
	"github.com/scholia-ai/scholia/pkg/loader/web"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/query"
	"github.com/scholia-ai/scholia/pkg/summary"
	"github.com/scholia-ai/scholia/pkg/vector"
)

// App holds the assembled application components.
type App struct {
	Config    *config.Config
	Client    ai.Client
	Store     graph.Store
	Index     vector.Index
	Source    loader.SourceLoader
	Pipeline  *ingest.Pipeline
	Engine    *query.Engine
	Generator *summary.Generator
	Fetcher   *arxiv.Fetcher
}

// New assembles the application. With a database URL configured the
// Postgres store backs both the graph and the embedding index;
// otherwise everything runs in memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	client, err := newAIClient(cfg)
	if err != nil {
		return nil, err
	}

	var (
		store graph.Store
		index vector.Index
	)
	if cfg.Database.URL != "" {
		if err := pgxstore.Migrate(cfg.Database.URL); err != nil {
			return nil, err
		}
		pg, err := pgxstore.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		store = pg
		index = pg
		logger.Info("[App] Using Postgres store")
	} else {
		store = memory.NewStore()
		index = vector.NewMemoryIndex(0)
		logger.Info("[App] Using in-memory store")
	}

	source, err := newSourceLoader(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pipeline := ingest.NewPipeline(ingest.NewPipelineParams{
		Store:      store,
		Index:      index,
		Client:     client,
		MaxWorkers: cfg.Ingest.MaxWorkers,
		MaxRetries: cfg.Ingest.MaxRetries,
	})

	engine, err := query.NewEngine(query.NewEngineParams{
		Store:             store,
		Index:             index,
		Client:            client,
		MaxEvidence:       cfg.Query.MaxEvidence,
		MaxEvidenceTokens: cfg.Query.MaxEvidenceTokens,
	})
	if err != nil {
		return nil, err
	}

	generator := summary.NewGenerator(summary.NewGeneratorParams{
		Store:  store,
		Client: client,
		Source: source,
		Model:  cfg.Summary.Model,
	})

	fetcher := arxiv.NewFetcher(arxiv.NewFetcherParams{
		Category:    cfg.Arxiv.Category,
		ListType:    cfg.Arxiv.ListType,
		MaxPerTopic: cfg.Arxiv.MaxPerTopic,
	})

	return &App{
		Config:    cfg,
		Client:    client,
		Store:     store,
		Index:     index,
		Source:    source,
		Pipeline:  pipeline,
		Engine:    engine,
		Generator: generator,
		Fetcher:   fetcher,
	}, nil
}

// Close releases the store connection.
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}

func newAIClient(cfg *config.Config) (ai.Client, error) {
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no api key configured")
		}
		return openai.NewOpenAIClient(openai.NewOpenAIClientParams{
			EmbeddingModel:    cfg.AI.OpenAI.EmbeddingModel,
			CompletionModel:   cfg.AI.OpenAI.CompletionModel,
			EmbeddingURL:      cfg.AI.OpenAI.BaseURL,
			EmbeddingKey:      cfg.AI.OpenAI.APIKey,
			ChatURL:           cfg.AI.OpenAI.BaseURL,
			ChatKey:           cfg.AI.OpenAI.APIKey,
			RequestsPerMinute: cfg.AI.OpenAI.RequestsPerMinute,
		}), nil
	case "ollama":
		return ollama.NewOllamaClient(ollama.NewOllamaClientParams{
			EmbeddingModel:        cfg.AI.Ollama.EmbeddingModel,
			CompletionModel:       cfg.AI.Ollama.CompletionModel,
			BaseURL:               cfg.AI.Ollama.BaseURL,
			ApiKey:                cfg.AI.Ollama.APIKey,
			MaxConcurrentRequests: int64(cfg.AI.Ollama.MaxConcurrentRequests),
		})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

// newSourceLoader builds the document source chain: web URLs are
// fetched and readability-extracted, everything else falls back to S3
// when configured, or the local filesystem.
func newSourceLoader(ctx context.Context, cfg *config.Config) (loader.SourceLoader, error) {
	var fallback loader.SourceLoader = ioloader.NewIOSourceLoader()

	if cfg.S3.Bucket != "" {
		s3, err := s3loader.NewS3SourceLoader(ctx, s3loader.NewS3SourceLoaderParams{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init s3 loader: %w", err)
		}
		fallback = s3
	}

	return web.NewWebSourceLoaderWithFallback(fallback), nil
}
