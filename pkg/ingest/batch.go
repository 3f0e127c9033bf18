package ingest

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/scholia-ai/scholia/pkg/loader"
	"github.com/scholia-ai/scholia/pkg/loader/zotero"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/model"
)

// Result reports the outcome of one item in a batch. Either PaperID or
// Err is set; Source identifies the item for the caller.
type Result struct {
	Source  string `json:"source"`
	PaperID string `json:"paper_id,omitempty"`
	Err     error  `json:"-"`
}

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// ProcessDirectory ingests every supported document under dir. Items
// run in parallel up to the pipeline's worker limit; a failed item is
// recorded in its Result and does not stop the rest of the batch. The
// returned error covers only directory walking, not item failures.
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir string, source loader.SourceLoader) ([]Result, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	logger.Info("[Ingest] Processing directory", "dir", dir, "documents", len(paths))

	results := make([]Result, len(paths))
	eg := new(errgroup.Group)
	eg.SetLimit(p.maxWorkers)
	for i, path := range paths {
		eg.Go(func() error {
			if ctx.Err() != nil {
				results[i] = Result{Source: path, Err: ctx.Err()}
				return nil
			}

			file := loader.NewDocumentFile(loader.NewDocumentFileParams{
				ID:       path,
				FilePath: path,
				Loader:   source,
			})
			paperID, err := p.Ingest(ctx, file)
			if err != nil {
				logger.Warn("[Ingest] Document failed", "path", path, "err", err)
			}
			results[i] = Result{Source: path, PaperID: paperID, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	logger.Info("[Ingest] Directory done", "dir", dir, "succeeded", countSucceeded(results), "failed", len(results)-countSucceeded(results))
	return results, nil
}

// ProcessMetadataCSV ingests every row of a Zotero CSV export. Row
// failures are recorded per Result; only an unreadable CSV fails the
// call as a whole.
func (p *Pipeline) ProcessMetadataCSV(ctx context.Context, r io.Reader) ([]Result, error) {
	records, err := zotero.ParseCSV(r)
	if err != nil {
		return nil, err
	}

	logger.Info("[Ingest] Importing metadata records", "total", len(records))

	results := make([]Result, len(records))
	eg := new(errgroup.Group)
	eg.SetLimit(p.maxWorkers)
	for i, record := range records {
		eg.Go(func() error {
			if ctx.Err() != nil {
				results[i] = Result{Source: record.Title, Err: ctx.Err()}
				return nil
			}

			paperID, err := p.IngestMetadata(ctx, record)
			if err != nil {
				logger.Warn("[Ingest] Record failed", "title", record.Title, "err", err)
			}
			results[i] = Result{Source: record.Title, PaperID: paperID, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	return results, nil
}

// IngestAll applies Ingest to a fixed set of files with the same
// partial-failure semantics as ProcessDirectory.
func (p *Pipeline) IngestAll(ctx context.Context, files []loader.DocumentFile) []Result {
	results := make([]Result, len(files))
	eg := new(errgroup.Group)
	eg.SetLimit(p.maxWorkers)
	for i, file := range files {
		eg.Go(func() error {
			if ctx.Err() != nil {
				results[i] = Result{Source: file.FilePath, Err: ctx.Err()}
				return nil
			}

			paperID, err := p.Ingest(ctx, file)
			if err != nil {
				logger.Warn("[Ingest] Document failed", "path", file.FilePath, "err", err)
			}
			results[i] = Result{Source: file.FilePath, PaperID: paperID, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// IngestRecords applies IngestMetadata to pre-extracted records, used
// by the arXiv fetcher.
func (p *Pipeline) IngestRecords(ctx context.Context, records []model.DocumentMetadata) []Result {
	results := make([]Result, len(records))
	eg := new(errgroup.Group)
	eg.SetLimit(p.maxWorkers)
	for i, record := range records {
		eg.Go(func() error {
			if ctx.Err() != nil {
				results[i] = Result{Source: record.Title, Err: ctx.Err()}
				return nil
			}

			paperID, err := p.IngestMetadata(ctx, record)
			if err != nil {
				logger.Warn("[Ingest] Record failed", "title", record.Title, "err", err)
			}
			results[i] = Result{Source: record.Title, PaperID: paperID, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func countSucceeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
