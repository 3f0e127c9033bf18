// Package server exposes the ingestion, query, and summary operations
// over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/scholia-ai/scholia/internal/config"
	mid "github.com/scholia-ai/scholia/internal/server/middleware"
	"github.com/scholia-ai/scholia/pkg/ingest"
	"github.com/scholia-ai/scholia/pkg/loader"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/query"
	"github.com/scholia-ai/scholia/pkg/summary"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// Server wires the HTTP surface to the core packages.
type Server struct {
	pipeline  *ingest.Pipeline
	engine    *query.Engine
	generator *summary.Generator
	source    loader.SourceLoader
	cfg       *config.Config
}

// NewServerParams defines the collaborators of a Server. Source is the
// loader used for paths received in ingest requests.
type NewServerParams struct {
	Pipeline  *ingest.Pipeline
	Engine    *query.Engine
	Generator *summary.Generator
	Source    loader.SourceLoader
	Config    *config.Config
}

// NewServer creates a Server.
func NewServer(params NewServerParams) *Server {
	return &Server{
		pipeline:  params.Pipeline,
		engine:    params.Engine,
		generator: params.Generator,
		source:    params.Source,
		cfg:       params.Config,
	}
}

// Run starts the HTTP listener and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())

	api := e.Group("/api")
	if s.cfg.Server.JWKSURL != "" {
		k, err := keyfunc.NewDefault([]string{s.cfg.Server.JWKSURL})
		if err != nil {
			return fmt.Errorf("failed to load jwks keys: %w", err)
		}
		api.Use(mid.AuthMiddleware(k))
	}

	s.registerRoutes(e, api)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
		logger.Info("[Server] Starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
