package query

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/graph/memory"
	"github.com/scholia-ai/scholia/pkg/model"
	"github.com/scholia-ai/scholia/pkg/normalize"
	"github.com/scholia-ai/scholia/pkg/vector"
)

type fakeClient struct {
	mu             sync.Mutex
	embedCalls     int
	classification string
	answer         string
}

func (c *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if c.answer != "" {
		return c.answer, nil
	}
	return "synthesized answer", nil
}

func (c *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return json.Unmarshal([]byte(c.classification), out)
}

func (c *fakeClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	c.mu.Lock()
	c.embedCalls++
	c.mu.Unlock()

	sum := sha256.Sum256(input)
	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = float32(sum[i]) + 1
	}
	return vec, nil
}

func (c *fakeClient) ResetMetrics() {}

func (c *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func seedPaper(t *testing.T, store *memory.Store, title, abstract string) string {
	t.Helper()
	node, _, err := store.UpsertNode(context.Background(), model.NodeTypePaper, normalize.Title(title), map[string]string{
		model.AttrTitle:    title,
		model.AttrAbstract: abstract,
	})
	if err != nil {
		t.Fatalf("seed paper %q failed: %v", title, err)
	}
	return node.ID
}

func newTestEngine(t *testing.T, client ai.Client) (*Engine, *memory.Store, *vector.MemoryIndex) {
	t.Helper()
	store := memory.NewStore()
	index := vector.NewMemoryIndex(0)
	engine, err := NewEngine(NewEngineParams{Store: store, Index: index, Client: client})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, store, index
}

func TestQueryGraphShapedIssuesNoEmbedding(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	engine, store, _ := newTestEngine(t, client)

	attention := seedPaper(t, store, "Attention Is All You Need", "The transformer architecture.")
	bert := seedPaper(t, store, "BERT Pretraining", "Bidirectional encoders.")
	if err := store.UpsertEdge(ctx, model.EdgeCites, bert, attention, nil); err != nil {
		t.Fatal(err)
	}

	res, err := engine.Query(ctx, "Who cites Attention Is All You Need?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Mode != ModeGraph {
		t.Errorf("mode = %s, want graph", res.Mode)
	}
	if res.State != StateAnswered {
		t.Errorf("state = %s, want answered", res.State)
	}
	if client.embedCalls != 0 {
		t.Errorf("embedding called %d times, want 0", client.embedCalls)
	}

	found := false
	for _, ev := range res.Evidence {
		if ev.PaperID == bert {
			found = true
		}
	}
	if !found {
		t.Errorf("evidence %v does not include citing paper", res.Evidence)
	}
}

func TestQuerySimilarityShaped(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	engine, store, index := newTestEngine(t, client)

	paperID := seedPaper(t, store, "Graph Neural Networks Survey", "A survey of GNN methods.")
	vec, err := client.GenerateEmbedding(ctx, []byte("seed"))
	if err != nil {
		t.Fatal(err)
	}
	if err := index.Upsert(ctx, paperID, vec); err != nil {
		t.Fatal(err)
	}
	client.embedCalls = 0

	res, err := engine.Query(ctx, "papers about graph neural networks")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Mode != ModeSimilarity {
		t.Errorf("mode = %s, want similarity", res.Mode)
	}
	if client.embedCalls != 1 {
		t.Errorf("embedding called %d times, want 1", client.embedCalls)
	}
	if len(res.Evidence) != 1 || res.Evidence[0].PaperID != paperID {
		t.Errorf("evidence = %v, want the seeded paper", res.Evidence)
	}
	if res.Evidence[0].Score == 0 {
		t.Errorf("similarity evidence has no score")
	}
}

func TestQueryClassificationFallsBackToModel(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{classification: `{"mode":"similarity","entities":[]}`}
	engine, _, _ := newTestEngine(t, client)

	res, err := engine.Query(ctx, "transformers")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Mode != ModeSimilarity {
		t.Errorf("mode = %s, want similarity from model fallback", res.Mode)
	}
}

func TestQueryModelNamedEntityResolvesByTitle(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{classification: `{"mode":"graph","entities":["Deep Residual Learning"]}`}
	engine, store, _ := newTestEngine(t, client)

	// Papers with authors or identifiers carry suffixed canonical keys,
	// so a bare title only resolves through the title attribute.
	key := normalize.PaperKey(model.DocumentMetadata{
		Title:   "Deep Residual Learning",
		Authors: []string{"Kaiming He"},
	})
	node, _, err := store.UpsertNode(ctx, model.NodeTypePaper, key, map[string]string{
		model.AttrTitle:    "Deep Residual Learning",
		model.AttrAbstract: "Residual networks.",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := engine.Query(ctx, "resnets")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Mode != ModeGraph {
		t.Errorf("mode = %s, want graph", res.Mode)
	}

	found := false
	for _, ev := range res.Evidence {
		if ev.PaperID == node.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("evidence %v does not include the paper named by the classifier", res.Evidence)
	}
}

func TestFindSimilarPapersExcludesSelf(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	engine, _, index := newTestEngine(t, client)

	vecs := map[string][]float32{
		"paper-a": {1, 0, 0},
		"paper-b": {0.9, 0.1, 0},
		"paper-c": {0, 1, 0},
	}
	for id, v := range vecs {
		if err := index.Upsert(ctx, id, v); err != nil {
			t.Fatal(err)
		}
	}

	results, err := engine.FindSimilarPapers(ctx, "paper-a", 2)
	if err != nil {
		t.Fatalf("FindSimilarPapers failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.PaperID == "paper-a" {
			t.Errorf("results include the query paper itself")
		}
	}
	if results[0].PaperID != "paper-b" {
		t.Errorf("closest = %s, want paper-b", results[0].PaperID)
	}
}

func TestFindSimilarPapersNotIndexed(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t, &fakeClient{})

	_, err := engine.FindSimilarPapers(ctx, "missing", 3)
	if err == nil {
		t.Fatal("expected error for unindexed paper")
	}
	if !errors.Is(err, vector.ErrNotIndexed) {
		t.Errorf("got %v, want ErrNotIndexed", err)
	}
}
