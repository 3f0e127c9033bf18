package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/model"
	"github.com/scholia-ai/scholia/pkg/normalize"
)

// relationalCues mark questions about explicit graph relationships.
var relationalCues = []string{
	"cite", "cites", "cited", "citation",
	"co-author", "coauthor", "authored", "wrote", "written by",
	"published", "affiliated", "affiliation", "institution",
	"belongs to", "field of",
}

// similarityCues mark questions about topical likeness.
var similarityCues = []string{
	"similar", "like", "about", "related to", "topic", "on the subject",
}

// classification mirrors the JSON shape the classification prompt asks for.
type classification struct {
	Mode     string   `json:"mode"`
	Entities []string `json:"entities"`
}

// classify determines the retrieval mode for a question. Lexical cues
// decide directly when they are unambiguous; otherwise one structured
// model call breaks the tie.
func (e *Engine) classify(ctx context.Context, question string) (Mode, []matchedEntity, error) {
	folded := strings.ToLower(question)
	relational := containsAny(folded, relationalCues)
	similarity := containsAny(folded, similarityCues)

	entities, err := e.findKnownEntities(ctx, question)
	if err != nil {
		return "", nil, err
	}

	switch {
	case relational && similarity:
		return ModeHybrid, entities, nil
	case relational:
		return ModeGraph, entities, nil
	case similarity:
		return ModeSimilarity, entities, nil
	case len(entities) > 0:
		// A named entity with no topical cue reads as a relationship
		// question about that entity.
		return ModeGraph, entities, nil
	}

	return e.classifyWithModel(ctx, question, entities)
}

func (e *Engine) classifyWithModel(ctx context.Context, question string, entities []matchedEntity) (Mode, []matchedEntity, error) {
	var result classification
	prompt := fmt.Sprintf(ai.ClassifyPrompt, question)
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"query_classification",
		"Retrieval mode and entities for a question over a paper knowledge base",
		prompt,
		&result,
	)
	if err != nil {
		return "", nil, err
	}

	for _, name := range result.Entities {
		if node := e.lookupEntity(ctx, name); node != nil {
			entities = append(entities, matchedEntity{node: node})
		}
	}

	switch Mode(result.Mode) {
	case ModeGraph, ModeSimilarity, ModeHybrid:
		return Mode(result.Mode), entities, nil
	default:
		logger.Warn("[Query] Unrecognized classification, falling back to hybrid", "mode", result.Mode)
		return ModeHybrid, entities, nil
	}
}

// lookupEntity resolves a model-suggested entity name against the graph.
// Paper canonical keys carry identifier or author-surname parts, so paper
// names are matched against the stored title attribute; authors resolve
// by their canonical name key.
func (e *Engine) lookupEntity(ctx context.Context, name string) *model.Node {
	if title := normalize.Title(name); title != "" {
		papers, err := e.store.NodesByType(ctx, model.NodeTypePaper)
		if err == nil {
			for _, p := range papers {
				if normalize.Title(p.Attr(model.AttrTitle)) == title {
					return p
				}
			}
		}
	}
	if node, err := e.store.FindNodeByKey(ctx, model.NodeTypeAuthor, normalize.Name(name)); err == nil {
		return node
	}
	return nil
}

func containsAny(text string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}
