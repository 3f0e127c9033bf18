package summary

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/scholia-ai/scholia/pkg/ai"
	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/graph/memory"
	ioloader "github.com/scholia-ai/scholia/pkg/loader/io"
	"github.com/scholia-ai/scholia/pkg/model"
)

type fakeClient struct {
	completion string
	keywords   string
}

func (c *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return c.completion, nil
}

func (c *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return json.Unmarshal([]byte(c.keywords), out)
}

func (c *fakeClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeClient) ResetMetrics() {}

func (c *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestGenerateOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := &fakeClient{
		completion: "First summary.",
		keywords:   `{"keywords":["graphs","retrieval"]}`,
	}
	gen := NewGenerator(NewGeneratorParams{Store: store, Client: client})

	node, _, err := store.UpsertNode(ctx, model.NodeTypePaper, "test paper", map[string]string{
		model.AttrTitle:    "Test Paper",
		model.AttrAbstract: "An abstract about graphs and retrieval.",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := gen.Generate(ctx, node.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Summary != "First summary." {
		t.Errorf("summary = %q", res.Summary)
	}
	if len(res.Keywords) != 2 {
		t.Errorf("keywords = %v", res.Keywords)
	}

	client.completion = "Second summary."
	if _, err := gen.Generate(ctx, node.ID); err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	updated, err := store.GetNode(ctx, node.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Attr(model.AttrSummary) != "Second summary." {
		t.Errorf("stored summary = %q, want overwritten value", updated.Attr(model.AttrSummary))
	}
	if updated.Attr(model.AttrKeywords) != "graphs,retrieval" {
		t.Errorf("stored keywords = %q", updated.Attr(model.AttrKeywords))
	}
}

func TestGenerateFallsBackToSourceText(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := &fakeClient{
		completion: "Summary from full text.",
		keywords:   `{"keywords":["robotics"]}`,
	}

	path := filepath.Join(t.TempDir(), "paper.txt")
	if err := os.WriteFile(path, []byte("Full text of a robotics paper."), 0o644); err != nil {
		t.Fatal(err)
	}

	gen := NewGenerator(NewGeneratorParams{
		Store:  store,
		Client: client,
		Source: ioloader.NewIOSourceLoader(),
	})

	node, _, err := store.UpsertNode(ctx, model.NodeTypePaper, "robotics paper", map[string]string{
		model.AttrTitle:      "Robotics Paper",
		model.AttrSourcePath: path,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := gen.Generate(ctx, node.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Summary != "Summary from full text." {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestGenerateNoTextAvailable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := NewGenerator(NewGeneratorParams{Store: store, Client: &fakeClient{}})

	node, _, err := store.UpsertNode(ctx, model.NodeTypePaper, "bare paper", map[string]string{
		model.AttrTitle: "Bare Paper",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Generate(ctx, node.ID); err == nil {
		t.Fatal("expected error for paper without abstract or source")
	}
}

func TestGenerateUnknownPaper(t *testing.T) {
	gen := NewGenerator(NewGeneratorParams{Store: memory.NewStore(), Client: &fakeClient{}})

	_, err := gen.Generate(context.Background(), "missing")
	if !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGenerateRejectsNonPaper(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := NewGenerator(NewGeneratorParams{Store: store, Client: &fakeClient{}})

	node, _, err := store.UpsertNode(ctx, model.NodeTypeAuthor, "alice smith", map[string]string{
		model.AttrName: "Alice Smith",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Generate(ctx, node.ID); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
