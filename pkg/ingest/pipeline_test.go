package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/graph/memory"
	ioloader "github.com/scholia-ai/scholia/pkg/loader/io"
	"github.com/scholia-ai/scholia/pkg/model"
	"github.com/scholia-ai/scholia/pkg/vector"
)

// fakeClient answers structured completions from canned JSON keyed by a
// marker substring of the prompt, and produces deterministic embeddings.
type fakeClient struct {
	mu         sync.Mutex
	embedCalls int
	responses  map[string]string
}

func (c *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "ok", nil
}

func (c *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for marker, payload := range c.responses {
		if strings.Contains(prompt, marker) {
			if payload == "" {
				return errors.New("model unavailable")
			}
			return json.Unmarshal([]byte(payload), out)
		}
	}
	return errors.New("no canned response for prompt")
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

func newTestPipeline(client ai.Client) (*Pipeline, *memory.Store, *vector.MemoryIndex) {
	store := memory.NewStore()
	index := vector.NewMemoryIndex(0)
	p := NewPipeline(NewPipelineParams{
		Store:  store,
		Index:  index,
		Client: client,
	})
	return p, store, index
}

func TestIngestMetadataIdempotent(t *testing.T) {
	ctx := context.Background()
	p, _, index := newTestPipeline(&fakeClient{})

	meta := model.DocumentMetadata{
		Title:    "Graph Attention Networks",
		Authors:  []string{"Petar Velickovic"},
		Abstract: "We present graph attention networks.",
		Fields:   []string{"Machine Learning"},
	}

	first, err := p.IngestMetadata(ctx, meta)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	second, err := p.IngestMetadata(ctx, meta)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if first != second {
		t.Errorf("paper ids differ: %q vs %q", first, second)
	}

	vec, err := index.Get(ctx, first)
	if err != nil {
		t.Fatalf("paper has no vector: %v", err)
	}
	results, err := index.Query(ctx, vec, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d vectors, want 1", len(results))
	}
}

func TestIngestMetadataSharedAuthor(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newTestPipeline(&fakeClient{})

	paperA, err := p.IngestMetadata(ctx, model.DocumentMetadata{
		Title:   "Paper A",
		Authors: []string{"Alice Smith"},
	})
	if err != nil {
		t.Fatalf("ingest A failed: %v", err)
	}
	paperB, err := p.IngestMetadata(ctx, model.DocumentMetadata{
		Title:   "Paper B",
		Authors: []string{"alice smith"},
	})
	if err != nil {
		t.Fatalf("ingest B failed: %v", err)
	}

	authorsA, err := store.Neighbors(ctx, paperA, model.EdgeAuthoredBy, graph.Outgoing)
	if err != nil {
		t.Fatalf("neighbors A failed: %v", err)
	}
	authorsB, err := store.Neighbors(ctx, paperB, model.EdgeAuthoredBy, graph.Outgoing)
	if err != nil {
		t.Fatalf("neighbors B failed: %v", err)
	}
	if len(authorsA) != 1 || len(authorsB) != 1 {
		t.Fatalf("author counts = %d, %d, want 1, 1", len(authorsA), len(authorsB))
	}
	if authorsA[0].ID != authorsB[0].ID {
		t.Errorf("author nodes differ: %q vs %q", authorsA[0].ID, authorsB[0].ID)
	}

	if err := p.AddCitation(ctx, paperB, paperA); err != nil {
		t.Fatalf("AddCitation failed: %v", err)
	}
	citedBy, err := store.Neighbors(ctx, paperA, model.EdgeCites, graph.Incoming)
	if err != nil {
		t.Fatalf("incoming citations failed: %v", err)
	}
	if len(citedBy) != 1 || citedBy[0].ID != paperB {
		t.Errorf("cited by = %v, want [%s]", citedBy, paperB)
	}
}

func TestAddCitationSelfLoop(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(&fakeClient{})

	paperID, err := p.IngestMetadata(ctx, model.DocumentMetadata{Title: "Solo"})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := p.AddCitation(ctx, paperID, paperID); !errors.Is(err, graph.ErrInvalidEdge) {
		t.Errorf("got %v, want ErrInvalidEdge", err)
	}
}

func TestIngestMetadataAffiliations(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newTestPipeline(&fakeClient{})

	_, err := p.IngestMetadata(ctx, model.DocumentMetadata{
		Title:   "Affiliated Work",
		Authors: []string{"Bob Jones"},
		Affiliations: []model.Affiliation{
			{Author: "Bob Jones", Institution: "MIT"},
		},
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	author, err := store.FindNodeByKey(ctx, model.NodeTypeAuthor, "bob jones")
	if err != nil {
		t.Fatalf("author not found: %v", err)
	}
	insts, err := store.Neighbors(ctx, author.ID, model.EdgeAffiliatedWith, graph.Outgoing)
	if err != nil {
		t.Fatalf("neighbors failed: %v", err)
	}
	if len(insts) != 1 || insts[0].Attr(model.AttrName) != "MIT" {
		t.Errorf("institutions = %v, want [MIT]", insts)
	}
}

func TestProcessDirectoryPartialFailure(t *testing.T) {
	ctx := context.Background()

	client := &fakeClient{responses: map[string]string{
		"FIRST-PAPER": `{"title":"First Paper","authors":["A One"],"abstract":"About first things."}`,
		"THIRD-PAPER": `{"title":"Third Paper","authors":["C Three"],"abstract":"About third things."}`,
		"BROKEN":      "",
	}}
	p, _, _ := newTestPipeline(client)

	dir := t.TempDir()
	files := map[string]string{
		"a.txt": "FIRST-PAPER body text",
		"b.txt": "BROKEN\nno id here",
		"c.txt": "THIRD-PAPER body text",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	results, err := p.ProcessDirectory(ctx, dir, ioloader.NewIOSourceLoader())
	if err != nil {
		t.Fatalf("ProcessDirectory failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if r.PaperID != "" {
				t.Errorf("failed item %s has paper id %q", r.Source, r.PaperID)
			}
			continue
		}
		succeeded++
		if r.PaperID == "" {
			t.Errorf("succeeded item %s has no paper id", r.Source)
		}
	}
	if succeeded != 2 || failed != 1 {
		t.Errorf("succeeded = %d, failed = %d, want 2, 1", succeeded, failed)
	}
}

func TestProcessMetadataCSV(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newTestPipeline(&fakeClient{})

	csv := `"Title","Author","DOI","Manual Tags"
"CSV Paper One","Smith, Alice","10.1000/one","graphs"
"CSV Paper Two","Smith, Alice; Jones, Bob","","retrieval"
`
	results, err := p.ProcessMetadataCSV(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ProcessMetadataCSV failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("record %s failed: %v", r.Source, r.Err)
		}
	}

	papers, err := store.NodesByType(ctx, model.NodeTypePaper)
	if err != nil {
		t.Fatalf("NodesByType failed: %v", err)
	}
	if len(papers) != 2 {
		t.Errorf("got %d papers, want 2", len(papers))
	}
	authors, err := store.NodesByType(ctx, model.NodeTypeAuthor)
	if err != nil {
		t.Fatalf("NodesByType failed: %v", err)
	}
	if len(authors) != 2 {
		t.Errorf("got %d authors, want 2 (Alice Smith shared)", len(authors))
	}
}

func TestExtractMetadataHeuristicFallback(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{responses: map[string]string{"BROKEN": ""}}
	p, _, _ := newTestPipeline(client)

	text := "BROKEN extraction target\narXiv:2101.00001v2\nSome body text follows here."
	meta, err := p.extractMetadata(ctx, text)
	if err != nil {
		t.Fatalf("extractMetadata failed: %v", err)
	}
	if meta.ArxivID != "2101.00001" {
		t.Errorf("arxiv id = %q, want 2101.00001", meta.ArxivID)
	}
}
