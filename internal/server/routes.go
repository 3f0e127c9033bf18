package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/ingest"
	"github.com/scholia-ai/scholia/pkg/loader"
	"github.com/scholia-ai/scholia/pkg/vector"
)

func (s *Server) registerRoutes(e *echo.Echo, api *echo.Group) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	api.POST("/ingest", s.ingestHandler)
	api.POST("/import", s.importHandler)
	api.POST("/query", s.queryHandler)
	api.POST("/citations", s.citationHandler)
	api.GET("/papers/:id/similar", s.similarHandler)
	api.POST("/papers/:id/summary", s.summaryHandler)
}

type ingestRequest struct {
	Paths []string `json:"paths" validate:"required,min=1"`
}

type itemResult struct {
	Source  string `json:"source"`
	PaperID string `json:"paper_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func toItemResults(results []ingest.Result) []itemResult {
	out := make([]itemResult, len(results))
	for i, r := range results {
		out[i] = itemResult{Source: r.Source, PaperID: r.PaperID}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func (s *Server) ingestHandler(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	files := make([]loader.DocumentFile, len(req.Paths))
	for i, path := range req.Paths {
		files[i] = loader.NewDocumentFile(loader.NewDocumentFileParams{
			ID:       path,
			FilePath: path,
			Loader:   s.source,
		})
	}

	results := s.pipeline.IngestAll(c.Request().Context(), files)
	return c.JSON(http.StatusOK, map[string]any{"results": toItemResults(results)})
}

// importHandler ingests a Zotero CSV export posted as the request body.
func (s *Server) importHandler(c echo.Context) error {
	results, err := s.pipeline.ProcessMetadataCSV(c.Request().Context(), c.Request().Body)
	if err != nil {
		if errors.Is(err, loader.ErrParse) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"results": toItemResults(results)})
}

type queryRequest struct {
	Question string `json:"question" validate:"required"`
}

func (s *Server) queryHandler(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	res, err := s.engine.Query(c.Request().Context(), req.Question)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

type citationRequest struct {
	CitingID string `json:"citing_id" validate:"required"`
	CitedID  string `json:"cited_id" validate:"required"`
}

func (s *Server) citationHandler(c echo.Context) error {
	var req citationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	err := s.pipeline.AddCitation(c.Request().Context(), req.CitingID, req.CitedID)
	switch {
	case errors.Is(err, graph.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, graph.ErrInvalidEdge):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) similarHandler(c echo.Context) error {
	k := 5
	if raw := c.QueryParam("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "k must be a positive integer"})
		}
		k = parsed
	}

	results, err := s.engine.FindSimilarPapers(c.Request().Context(), c.Param("id"), k)
	switch {
	case errors.Is(err, vector.ErrNotIndexed):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

func (s *Server) summaryHandler(c echo.Context) error {
	res, err := s.generator.Generate(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, graph.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}
