// Package ingest turns source documents into graph nodes, edges, and
// embedding vectors. Batch operations report per-item results instead of
// aborting on the first failure.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/scholia-ai/scholia/internal/util"
	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/loader"
	"github.com/scholia-ai/scholia/pkg/loader/doc"
	"github.com/scholia-ai/scholia/pkg/loader/pdf"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/model"
	"github.com/scholia-ai/scholia/pkg/vector"
)

const (
	defaultMaxWorkers = 4
	defaultMaxRetries = 3

	// extractionWordLimit bounds the document text sent to the
	// metadata-extraction model. Titles, authors, and abstracts live in
	// the opening pages, so the cap rarely costs anything.
	extractionWordLimit = 1500
)

// Pipeline ingests documents into the graph store and embedding index.
type Pipeline struct {
	store    graph.Store
	resolver *graph.Resolver
	index    vector.Index
	client   ai.Client

	maxWorkers int
	maxRetries int

	embedLocks keyedMutex
}

// NewPipelineParams defines the collaborators and limits of a Pipeline.
// MaxWorkers bounds batch parallelism, MaxRetries bounds per-call retry
// of external collaborators.
type NewPipelineParams struct {
	Store  graph.Store
	Index  vector.Index
	Client ai.Client

	MaxWorkers int
	MaxRetries int
}

// NewPipeline creates a Pipeline.
func NewPipeline(params NewPipelineParams) *Pipeline {
	maxWorkers := params.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Pipeline{
		store:      params.Store,
		resolver:   graph.NewResolver(params.Store),
		index:      params.Index,
		client:     params.Client,
		maxWorkers: maxWorkers,
		maxRetries: maxRetries,
		embedLocks: newKeyedMutex(),
	}
}

// Ingest extracts metadata and text from the document, resolves the
// paper and its related entities into the graph, and indexes the
// paper's embedding. It returns the resolved paper id.
//
// Graph writes are not transactional across steps: when a later step
// fails (say the embedding provider is down), earlier writes stay
// committed and the error is returned alongside the id resolved so far.
func (p *Pipeline) Ingest(ctx context.Context, file loader.DocumentFile) (string, error) {
	raw, err := file.GetText(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", file.FilePath, err)
	}

	text, err := ExtractText(ctx, file.Format, raw)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", file.FilePath, err)
	}

	meta, err := p.extractMetadata(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to extract metadata from %s: %w", file.FilePath, err)
	}
	meta.FullText = text
	meta.SourcePath = file.FilePath

	return p.IngestMetadata(ctx, meta)
}

// IngestMetadata resolves already-extracted metadata into the graph and
// embedding index. CSV imports and the arXiv fetcher enter here.
func (p *Pipeline) IngestMetadata(ctx context.Context, meta model.DocumentMetadata) (string, error) {
	paperID, created, err := p.resolver.ResolvePaper(ctx, meta)
	if err != nil {
		return "", err
	}
	logger.Debug("[Ingest] Resolved paper", "id", paperID, "created", created, "title", meta.Title)

	for i, name := range meta.Authors {
		authorID, _, err := p.resolver.ResolveAuthor(ctx, name)
		if err != nil {
			return paperID, fmt.Errorf("failed to resolve author %q: %w", name, err)
		}
		attrs := map[string]string{model.EdgeAttrPosition: strconv.Itoa(i)}
		if err := p.store.UpsertEdge(ctx, model.EdgeAuthoredBy, paperID, authorID, attrs); err != nil {
			return paperID, fmt.Errorf("failed to link author %q: %w", name, err)
		}
	}

	for _, aff := range meta.Affiliations {
		if strings.TrimSpace(aff.Author) == "" || strings.TrimSpace(aff.Institution) == "" {
			continue
		}
		authorID, _, err := p.resolver.ResolveAuthor(ctx, aff.Author)
		if err != nil {
			return paperID, fmt.Errorf("failed to resolve author %q: %w", aff.Author, err)
		}
		if err := p.AddInstitution(ctx, authorID, aff.Institution); err != nil {
			return paperID, err
		}
	}

	for _, label := range meta.Fields {
		if err := p.AddResearchField(ctx, paperID, label); err != nil {
			return paperID, err
		}
	}

	if err := p.indexEmbedding(ctx, paperID, meta); err != nil {
		return paperID, err
	}

	logger.Info("[Ingest] Ingested paper", "id", paperID, "title", meta.Title, "authors", len(meta.Authors))
	return paperID, nil
}

// AddCitation records that citingID cites citedID. Idempotent;
// self-citation fails with graph.ErrInvalidEdge.
func (p *Pipeline) AddCitation(ctx context.Context, citingID, citedID string) error {
	if err := p.store.UpsertEdge(ctx, model.EdgeCites, citingID, citedID, nil); err != nil {
		return fmt.Errorf("failed to add citation: %w", err)
	}
	return nil
}

// AddResearchField links a paper to a research field, creating the
// field node when absent.
func (p *Pipeline) AddResearchField(ctx context.Context, paperID, label string) error {
	fieldID, _, err := p.resolver.ResolveField(ctx, label)
	if err != nil {
		return fmt.Errorf("failed to resolve field %q: %w", label, err)
	}
	if err := p.store.UpsertEdge(ctx, model.EdgeBelongsTo, paperID, fieldID, nil); err != nil {
		return fmt.Errorf("failed to link field %q: %w", label, err)
	}
	return nil
}

// AddInstitution affiliates an author with an institution, creating the
// institution node when absent.
func (p *Pipeline) AddInstitution(ctx context.Context, authorID, institution string) error {
	instID, _, err := p.resolver.ResolveInstitution(ctx, institution)
	if err != nil {
		return fmt.Errorf("failed to resolve institution %q: %w", institution, err)
	}
	if err := p.store.UpsertEdge(ctx, model.EdgeAffiliatedWith, authorID, instID, nil); err != nil {
		return fmt.Errorf("failed to link institution %q: %w", institution, err)
	}
	return nil
}

// indexEmbedding computes the paper embedding and replaces the stored
// vector. The remove/upsert pair runs under a per-paper lock so two
// concurrent ingestions of the same paper cannot interleave into a
// removed-after-upsert state.
func (p *Pipeline) indexEmbedding(ctx context.Context, paperID string, meta model.DocumentMetadata) error {
	text := meta.EmbeddingText()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	vec, err := util.RetryWithContext(ctx, p.maxRetries, func(ctx context.Context) ([]float32, error) {
		return p.client.GenerateEmbedding(ctx, []byte(text))
	})
	if err != nil {
		return fmt.Errorf("failed to embed paper %s: %w", paperID, err)
	}

	unlock := p.embedLocks.Lock(paperID)
	defer unlock()

	if err := p.index.Remove(ctx, paperID); err != nil {
		return fmt.Errorf("failed to clear old vector for %s: %w", paperID, err)
	}
	if err := p.index.Upsert(ctx, paperID, vec); err != nil {
		return fmt.Errorf("failed to index paper %s: %w", paperID, err)
	}
	return nil
}

// extractedMetadata mirrors the JSON shape the extraction prompt asks for.
type extractedMetadata struct {
	Title        string              `json:"title"`
	Authors      []string            `json:"authors"`
	Abstract     string              `json:"abstract"`
	Published    string              `json:"published"`
	DOI          string              `json:"doi"`
	ArxivID      string              `json:"arxiv_id"`
	Fields       []string            `json:"fields"`
	Affiliations []model.Affiliation `json:"affiliations"`
}

// extractMetadata combines textual heuristics with a structured
// model call. Heuristics win for identifiers (they are exact matches in
// the text); the model wins for authors, fields, and affiliations.
func (p *Pipeline) extractMetadata(ctx context.Context, text string) (model.DocumentMetadata, error) {
	hints := pdf.ScrapeHeuristics(text)

	var extracted extractedMetadata
	prompt := fmt.Sprintf(ai.MetadataPrompt, util.FirstNWords(text, extractionWordLimit))
	err := util.RetryErrWithContext(ctx, p.maxRetries, func(ctx context.Context) error {
		return p.client.GenerateCompletionWithFormat(
			ctx,
			"paper_metadata",
			"Bibliographic metadata extracted from a research paper",
			prompt,
			&extracted,
		)
	})
	if err != nil {
		// Heuristics alone can still identify the paper.
		if hints.Title == "" && hints.DOI == "" && hints.ArxivID == "" {
			return model.DocumentMetadata{}, err
		}
		logger.Warn("[Ingest] Metadata extraction failed, using heuristics only", "err", err)
	}

	meta := model.DocumentMetadata{
		Title:        firstNonEmpty(extracted.Title, hints.Title),
		Authors:      extracted.Authors,
		Abstract:     firstNonEmpty(extracted.Abstract, hints.Abstract),
		Published:    extracted.Published,
		DOI:          firstNonEmpty(hints.DOI, extracted.DOI),
		ArxivID:      firstNonEmpty(hints.ArxivID, extracted.ArxivID),
		Fields:       extracted.Fields,
		Affiliations: extracted.Affiliations,
	}
	return meta, nil
}

// ExtractText converts raw document bytes into plain text according to
// their format.
func ExtractText(ctx context.Context, format loader.DocumentFormat, raw []byte) (string, error) {
	switch format {
	case loader.FormatPDF:
		return pdf.ExtractText(raw, 0)
	case loader.FormatDocx:
		text, err := doc.GetFileTextFromIO(ctx, bytes.NewReader(raw))
		if err != nil {
			return "", err
		}
		return string(text), nil
	default:
		return string(raw), nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
