package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/model"
)

// evidenceSet accumulates evidence entries deduplicated by paper id
// while preserving insertion order.
type evidenceSet struct {
	order []string
	byID  map[string]*Evidence
}

func newEvidenceSet() *evidenceSet {
	return &evidenceSet{byID: make(map[string]*Evidence)}
}

func (s *evidenceSet) add(ev Evidence) *Evidence {
	if existing, ok := s.byID[ev.PaperID]; ok {
		existing.Facts = append(existing.Facts, ev.Facts...)
		if existing.Score == 0 {
			existing.Score = ev.Score
		}
		if existing.Abstract == "" {
			existing.Abstract = ev.Abstract
		}
		return existing
	}
	stored := ev
	s.order = append(s.order, ev.PaperID)
	s.byID[ev.PaperID] = &stored
	return &stored
}

func (s *evidenceSet) list(limit int) []Evidence {
	out := make([]Evidence, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// gatherEvidence collects the candidate papers for a question. Graph
// evidence comes from the matched entities' neighborhoods; similarity
// evidence from embedding the question and querying the index. Hybrid
// runs both and unions the sets.
func (e *Engine) gatherEvidence(ctx context.Context, question string, mode Mode, entities []matchedEntity) ([]Evidence, error) {
	set := newEvidenceSet()

	if mode == ModeGraph || mode == ModeHybrid {
		for _, entity := range entities {
			if err := e.gatherGraphEvidence(ctx, entity.node, set); err != nil {
				return nil, err
			}
		}
	}

	if mode == ModeSimilarity || mode == ModeHybrid {
		if err := e.gatherSimilarityEvidence(ctx, question, set); err != nil {
			return nil, err
		}
	}

	return set.list(e.maxEvidence), nil
}

// gatherGraphEvidence walks the immediate neighborhood of a matched
// entity and records relationship facts on the papers involved.
func (e *Engine) gatherGraphEvidence(ctx context.Context, node *model.Node, set *evidenceSet) error {
	switch node.Type {
	case model.NodeTypePaper:
		return e.gatherPaperEvidence(ctx, node, set)
	case model.NodeTypeAuthor:
		return e.gatherAuthorEvidence(ctx, node, set)
	default:
		return nil
	}
}

func (e *Engine) gatherPaperEvidence(ctx context.Context, paper *model.Node, set *evidenceSet) error {
	entry := set.add(Evidence{
		PaperID:  paper.ID,
		Title:    nodeTitle(paper),
		Abstract: shortAbstract(paper),
	})

	authors, err := e.store.Neighbors(ctx, paper.ID, model.EdgeAuthoredBy, graph.Outgoing)
	if err != nil {
		return fmt.Errorf("failed to load authors of %s: %w", paper.ID, err)
	}
	if len(authors) > 0 {
		names := make([]string, len(authors))
		for i, a := range authors {
			names[i] = nodeTitle(a)
		}
		entry.Facts = append(entry.Facts, "authored by "+strings.Join(names, ", "))
	}

	fields, err := e.store.Neighbors(ctx, paper.ID, model.EdgeBelongsTo, graph.Outgoing)
	if err != nil {
		return fmt.Errorf("failed to load fields of %s: %w", paper.ID, err)
	}
	for _, f := range fields {
		entry.Facts = append(entry.Facts, "belongs to field "+nodeTitle(f))
	}

	cites, err := e.store.Neighbors(ctx, paper.ID, model.EdgeCites, graph.Outgoing)
	if err != nil {
		return fmt.Errorf("failed to load citations of %s: %w", paper.ID, err)
	}
	for _, cited := range cites {
		entry.Facts = append(entry.Facts, fmt.Sprintf("cites %q", nodeTitle(cited)))
		set.add(Evidence{PaperID: cited.ID, Title: nodeTitle(cited), Abstract: shortAbstract(cited)})
	}

	citedBy, err := e.store.Neighbors(ctx, paper.ID, model.EdgeCites, graph.Incoming)
	if err != nil {
		return fmt.Errorf("failed to load citing papers of %s: %w", paper.ID, err)
	}
	for _, citing := range citedBy {
		entry.Facts = append(entry.Facts, fmt.Sprintf("cited by %q", nodeTitle(citing)))
		set.add(Evidence{PaperID: citing.ID, Title: nodeTitle(citing), Abstract: shortAbstract(citing)})
	}

	return nil
}

func (e *Engine) gatherAuthorEvidence(ctx context.Context, author *model.Node, set *evidenceSet) error {
	name := nodeTitle(author)

	var affiliationFact string
	institutions, err := e.store.Neighbors(ctx, author.ID, model.EdgeAffiliatedWith, graph.Outgoing)
	if err != nil {
		return fmt.Errorf("failed to load affiliations of %s: %w", author.ID, err)
	}
	if len(institutions) > 0 {
		names := make([]string, len(institutions))
		for i, inst := range institutions {
			names[i] = nodeTitle(inst)
		}
		affiliationFact = fmt.Sprintf("%s is affiliated with %s", name, strings.Join(names, ", "))
	}

	papers, err := e.store.Neighbors(ctx, author.ID, model.EdgeAuthoredBy, graph.Incoming)
	if err != nil {
		return fmt.Errorf("failed to load papers of %s: %w", author.ID, err)
	}
	for _, paper := range papers {
		facts := []string{"authored by " + name}
		if affiliationFact != "" {
			facts = append(facts, affiliationFact)
		}
		set.add(Evidence{
			PaperID:  paper.ID,
			Title:    nodeTitle(paper),
			Abstract: shortAbstract(paper),
			Facts:    facts,
		})
	}

	return nil
}

// gatherSimilarityEvidence embeds the question text and queries the
// index for the closest papers.
func (e *Engine) gatherSimilarityEvidence(ctx context.Context, question string, set *evidenceSet) error {
	vec, err := e.client.GenerateEmbedding(ctx, []byte(question))
	if err != nil {
		return fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := e.index.Query(ctx, vec, e.maxEvidence)
	if err != nil {
		return fmt.Errorf("failed to query index: %w", err)
	}

	for _, r := range results {
		node, err := e.store.GetNode(ctx, r.PaperID)
		if err != nil {
			// Vector without a node means the graph and index diverged;
			// skip rather than fail the whole query.
			continue
		}
		set.add(Evidence{
			PaperID:  r.PaperID,
			Title:    nodeTitle(node),
			Abstract: shortAbstract(node),
			Score:    r.Score,
		})
	}
	return nil
}
