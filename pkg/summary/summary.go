// Package summary generates paper summaries and keywords and writes
// them onto the Paper node. Regeneration overwrites the previous values;
// summaries are not versioned.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholia-ai/scholia/internal/util"
	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/ingest"
	"github.com/scholia-ai/scholia/pkg/loader"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/model"
)

// summaryWordLimit bounds the paper text sent to the model.
const summaryWordLimit = 3000

// Result holds a generated summary and its keywords.
type Result struct {
	PaperID  string   `json:"paper_id"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Generator produces summaries and keywords for papers in the graph.
type Generator struct {
	store  graph.Store
	client ai.Client
	source loader.SourceLoader
	model  string
}

// NewGeneratorParams defines the collaborators of a Generator. Source is
// used to re-read a paper's document when the node carries no abstract;
// Model optionally overrides the client's default completion model.
type NewGeneratorParams struct {
	Store  graph.Store
	Client ai.Client
	Source loader.SourceLoader
	Model  string
}

// NewGenerator creates a Generator.
func NewGenerator(params NewGeneratorParams) *Generator {
	return &Generator{
		store:  params.Store,
		client: params.Client,
		source: params.Source,
		model:  params.Model,
	}
}

// keywordList mirrors the JSON shape the keywords prompt asks for.
type keywordList struct {
	Keywords []string `json:"keywords"`
}

// Generate summarizes the paper and extracts its keywords, writing both
// onto the node. Fails with graph.ErrNotFound when the paper id is
// unknown.
func (g *Generator) Generate(ctx context.Context, paperID string) (*Result, error) {
	node, err := g.store.GetNode(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to load paper %s: %w", paperID, err)
	}
	if node.Type != model.NodeTypePaper {
		return nil, fmt.Errorf("%w: %s is a %s, not a paper", graph.ErrNotFound, paperID, node.Type)
	}

	title := node.Attr(model.AttrTitle)
	text := node.Attr(model.AttrAbstract)
	if strings.TrimSpace(text) == "" {
		text, err = g.loadSourceText(ctx, node)
		if err != nil {
			return nil, err
		}
	}
	text = util.FirstNWords(text, summaryWordLimit)

	var opts []ai.GenerateOption
	if g.model != "" {
		opts = append(opts, ai.WithModel(g.model))
	}

	summaryText, err := g.client.GenerateCompletion(ctx, fmt.Sprintf(ai.SummaryPrompt, title, text), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary for %s: %w", paperID, err)
	}
	summaryText = strings.TrimSpace(summaryText)

	var keywords keywordList
	err = g.client.GenerateCompletionWithFormat(
		ctx,
		"paper_keywords",
		"Keywords extracted from a research paper",
		fmt.Sprintf(ai.KeywordsPrompt, title, text),
		&keywords,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract keywords for %s: %w", paperID, err)
	}

	attrs := map[string]string{
		model.AttrSummary:  summaryText,
		model.AttrKeywords: strings.Join(keywords.Keywords, ","),
	}
	if err := g.store.SetNodeAttrs(ctx, paperID, attrs); err != nil {
		return nil, fmt.Errorf("failed to store summary for %s: %w", paperID, err)
	}

	logger.Info("[Summary] Generated", "paper", paperID, "keywords", len(keywords.Keywords))
	return &Result{PaperID: paperID, Summary: summaryText, Keywords: keywords.Keywords}, nil
}

// loadSourceText re-reads and extracts the paper's source document.
// Metadata-only papers with neither abstract nor source path cannot be
// summarized.
func (g *Generator) loadSourceText(ctx context.Context, node *model.Node) (string, error) {
	sourcePath := node.Attr(model.AttrSourcePath)
	if g.source == nil || sourcePath == "" {
		return "", fmt.Errorf("paper %s has no text to summarize", node.ID)
	}

	file := loader.NewDocumentFile(loader.NewDocumentFileParams{
		ID:       node.ID,
		FilePath: sourcePath,
		Loader:   g.source,
	})
	raw, err := file.GetText(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load source of %s: %w", node.ID, err)
	}
	text, err := ingest.ExtractText(ctx, file.Format, raw)
	if err != nil {
		return "", fmt.Errorf("failed to extract text of %s: %w", node.ID, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("paper %s has no text to summarize", node.ID)
	}
	return text, nil
}
