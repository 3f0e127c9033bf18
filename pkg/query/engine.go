// Package query answers natural-language questions over the paper graph
// and embedding index. A question is classified as graph-shaped,
// similarity-shaped, or hybrid, evidence is gathered accordingly, and an
// answer is synthesized from the evidence alone.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/model"
	"github.com/scholia-ai/scholia/pkg/normalize"
	"github.com/scholia-ai/scholia/pkg/vector"
)

const (
	defaultMaxEvidence       = 12
	defaultMaxEvidenceTokens = 4000

	tokenEncoding = "o200k_base"
)

// Mode is the retrieval strategy chosen for a question.
type Mode string

const (
	ModeGraph      Mode = "graph"
	ModeSimilarity Mode = "similarity"
	ModeHybrid     Mode = "hybrid"
)

// State tracks a query through its lifecycle. Answered and Failed are
// terminal.
type State string

const (
	StateReceived         State = "received"
	StateClassified       State = "classified"
	StateEvidenceGathered State = "evidence_gathered"
	StateAnswered         State = "answered"
	StateFailed           State = "failed"
)

// Evidence is one paper in the evidence set handed to answer synthesis.
// Facts hold relationship statements from the graph ("cited by X");
// Score is set on similarity matches.
type Evidence struct {
	PaperID  string   `json:"paper_id"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Facts    []string `json:"facts,omitempty"`
	Score    float32  `json:"score,omitempty"`
}

// Response is the outcome of a query: the synthesized answer plus the
// evidence it was based on.
type Response struct {
	Question string     `json:"question"`
	Mode     Mode       `json:"mode"`
	State    State      `json:"state"`
	Answer   string     `json:"answer"`
	Evidence []Evidence `json:"evidence"`
}

// Engine classifies questions and drives retrieval and synthesis.
type Engine struct {
	store  graph.Store
	index  vector.Index
	client ai.Client

	maxEvidence       int
	maxEvidenceTokens int
	encoder           *tiktoken.Tiktoken
}

// NewEngineParams defines the collaborators and evidence limits of an
// Engine. MaxEvidence bounds the candidate paper count, MaxEvidenceTokens
// bounds the rendered evidence block in the synthesis prompt.
type NewEngineParams struct {
	Store  graph.Store
	Index  vector.Index
	Client ai.Client

	MaxEvidence       int
	MaxEvidenceTokens int
}

// NewEngine creates an Engine.
func NewEngine(params NewEngineParams) (*Engine, error) {
	maxEvidence := params.MaxEvidence
	if maxEvidence <= 0 {
		maxEvidence = defaultMaxEvidence
	}
	maxTokens := params.MaxEvidenceTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxEvidenceTokens
	}

	encoder, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", tokenEncoding, err)
	}

	return &Engine{
		store:             params.Store,
		index:             params.Index,
		client:            params.Client,
		maxEvidence:       maxEvidence,
		maxEvidenceTokens: maxTokens,
		encoder:           encoder,
	}, nil
}

// Query answers a natural-language question. On collaborator failure the
// response carries the Failed state and the error surfaces the underlying
// kind; there is no retry at this layer.
func (e *Engine) Query(ctx context.Context, question string) (*Response, error) {
	res := &Response{Question: question, State: StateReceived}

	mode, entities, err := e.classify(ctx, question)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("failed to classify question: %w", err)
	}
	res.Mode = mode
	res.State = StateClassified
	logger.Debug("[Query] Classified", "mode", mode, "entities", len(entities))

	evidence, err := e.gatherEvidence(ctx, question, mode, entities)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("failed to gather evidence: %w", err)
	}
	res.Evidence = evidence
	res.State = StateEvidenceGathered

	answer, err := e.synthesize(ctx, question, evidence)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("failed to synthesize answer: %w", err)
	}
	res.Answer = answer
	res.State = StateAnswered

	logger.Info("[Query] Answered", "mode", mode, "evidence", len(evidence))
	return res, nil
}

// FindSimilarPapers returns the k papers most similar to the given one,
// using its stored vector. The paper itself is excluded from the results.
func (e *Engine) FindSimilarPapers(ctx context.Context, paperID string, k int) ([]vector.Result, error) {
	vec, err := e.index.Get(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vector for %s: %w", paperID, err)
	}

	results, err := e.index.Query(ctx, vec, k+1)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	similar := make([]vector.Result, 0, k)
	for _, r := range results {
		if r.PaperID == paperID {
			continue
		}
		similar = append(similar, r)
		if len(similar) == k {
			break
		}
	}
	return similar, nil
}

// synthesize renders the evidence block and asks the model for an answer
// grounded in it. The block is trimmed to the token budget before the
// prompt is built.
func (e *Engine) synthesize(ctx context.Context, question string, evidence []Evidence) (string, error) {
	block := e.renderEvidence(evidence)
	prompt := fmt.Sprintf(ai.AnswerPrompt, question, block)
	return e.client.GenerateCompletion(ctx, prompt)
}

func (e *Engine) renderEvidence(evidence []Evidence) string {
	if len(evidence) == 0 {
		return "(no evidence found)"
	}

	var b strings.Builder
	used := 0
	for i, ev := range evidence {
		var entry strings.Builder
		fmt.Fprintf(&entry, "%d. %q", i+1, ev.Title)
		if ev.Abstract != "" {
			fmt.Fprintf(&entry, "\n   Abstract: %s", ev.Abstract)
		}
		for _, fact := range ev.Facts {
			fmt.Fprintf(&entry, "\n   - %s", fact)
		}
		entry.WriteString("\n")

		cost := len(e.encoder.Encode(entry.String(), nil, nil))
		if used+cost > e.maxEvidenceTokens && used > 0 {
			break
		}
		used += cost
		b.WriteString(entry.String())
	}
	return b.String()
}

// nodeTitle returns the human-readable label of a node regardless of its
// type.
func nodeTitle(n *model.Node) string {
	if t := n.Attr(model.AttrTitle); t != "" {
		return t
	}
	if name := n.Attr(model.AttrName); name != "" {
		return name
	}
	return n.Attr(model.AttrLabel)
}

// shortAbstract truncates an abstract for evidence rendering.
func shortAbstract(n *model.Node) string {
	abstract := n.Attr(model.AttrAbstract)
	if summary := n.Attr(model.AttrSummary); summary != "" {
		abstract = summary
	}
	const maxLen = 600
	if len(abstract) > maxLen {
		abstract = abstract[:maxLen] + "…"
	}
	return abstract
}

// matchedEntity is a graph node whose title or name occurs in the
// question text.
type matchedEntity struct {
	node *model.Node
}

// findKnownEntities scans paper titles and author names for occurrences
// in the question. Very short titles are skipped to avoid accidental
// substring hits.
func (e *Engine) findKnownEntities(ctx context.Context, question string) ([]matchedEntity, error) {
	folded := normalize.Label(question)

	var matches []matchedEntity
	papers, err := e.store.NodesByType(ctx, model.NodeTypePaper)
	if err != nil {
		return nil, err
	}
	for _, p := range papers {
		title := normalize.Title(p.Attr(model.AttrTitle))
		if len(title) >= 8 && strings.Contains(folded, title) {
			matches = append(matches, matchedEntity{node: p})
		}
	}

	authors, err := e.store.NodesByType(ctx, model.NodeTypeAuthor)
	if err != nil {
		return nil, err
	}
	for _, a := range authors {
		name := normalize.Name(a.Attr(model.AttrName))
		if len(name) >= 5 && strings.Contains(folded, name) {
			matches = append(matches, matchedEntity{node: a})
		}
	}
	return matches, nil
}
