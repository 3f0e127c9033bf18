package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/model"
)

func mustUpsert(t *testing.T, s *Store, nodeType model.NodeType, key string, attrs map[string]string) *model.Node {
	t.Helper()
	node, _, err := s.UpsertNode(context.Background(), nodeType, key, attrs)
	if err != nil {
		t.Fatalf("UpsertNode(%s, %q) failed: %v", nodeType, key, err)
	}
	return node
}

func TestUpsertNodeResolvesDuplicateKeys(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first, created, err := s.UpsertNode(ctx, model.NodeTypeAuthor, "alice smith", map[string]string{model.AttrName: "Alice Smith"})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if !created {
		t.Error("first upsert should report created=true")
	}

	second, created, err := s.UpsertNode(ctx, model.NodeTypeAuthor, "alice smith", map[string]string{model.AttrName: "Alice SMITH"})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if created {
		t.Error("second upsert should report created=false")
	}
	if first.ID != second.ID {
		t.Errorf("duplicate key produced two nodes: %s and %s", first.ID, second.ID)
	}
}

func TestUpsertNodeMergePrefersExisting(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	mustUpsert(t, s, model.NodeTypePaper, "paper-key", map[string]string{
		model.AttrTitle: "Original Title",
	})

	node, _, err := s.UpsertNode(ctx, model.NodeTypePaper, "paper-key", map[string]string{
		model.AttrTitle:    "Different Title",
		model.AttrAbstract: "A new abstract",
	})
	if err != nil {
		t.Fatalf("merge upsert failed: %v", err)
	}
	if got := node.Attr(model.AttrTitle); got != "Original Title" {
		t.Errorf("existing title overwritten: got %q", got)
	}
	if got := node.Attr(model.AttrAbstract); got != "A new abstract" {
		t.Errorf("missing attribute not filled: got %q", got)
	}
}

func TestUpsertNodeConcurrentSameKey(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const workers = 32
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			node, _, err := s.UpsertNode(ctx, model.NodeTypeField, "machine learning", nil)
			if err != nil {
				t.Errorf("concurrent upsert failed: %v", err)
				return
			}
			ids[i] = node.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent upserts diverged: %s != %s", ids[i], ids[0])
		}
	}
}

func TestUpsertEdgeRejectsSelfCitation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	paper := mustUpsert(t, s, model.NodeTypePaper, "p1", nil)

	err := s.UpsertEdge(ctx, model.EdgeCites, paper.ID, paper.ID, nil)
	if !errors.Is(err, graph.ErrInvalidEdge) {
		t.Errorf("self-citation: got %v, want ErrInvalidEdge", err)
	}
}

func TestUpsertEdgeRejectsMismatchedEndpoints(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	paper := mustUpsert(t, s, model.NodeTypePaper, "p1", nil)
	author := mustUpsert(t, s, model.NodeTypeAuthor, "a1", nil)

	tests := []struct {
		name     string
		edgeType model.EdgeType
		from, to string
		wantErr  error
	}{
		{"valid authored_by", model.EdgeAuthoredBy, paper.ID, author.ID, nil},
		{"reversed authored_by", model.EdgeAuthoredBy, author.ID, paper.ID, graph.ErrInvalidEdge},
		{"cites to author", model.EdgeCites, paper.ID, author.ID, graph.ErrInvalidEdge},
		{"missing endpoint", model.EdgeCites, paper.ID, "no-such-node", graph.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpsertEdge(ctx, tt.edgeType, tt.from, tt.to, nil)
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpsertEdgeIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := mustUpsert(t, s, model.NodeTypePaper, "a", nil)
	b := mustUpsert(t, s, model.NodeTypePaper, "b", nil)

	for i := 0; i < 3; i++ {
		if err := s.UpsertEdge(ctx, model.EdgeCites, a.ID, b.ID, nil); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	neighbors, err := s.Neighbors(ctx, a.ID, model.EdgeCites, graph.Outgoing)
	if err != nil {
		t.Fatalf("Neighbors failed: %v", err)
	}
	if len(neighbors) != 1 {
		t.Errorf("duplicate edges not collapsed: got %d neighbors", len(neighbors))
	}
}

func TestNeighborsAuthorOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	paper := mustUpsert(t, s, model.NodeTypePaper, "p", nil)
	second := mustUpsert(t, s, model.NodeTypeAuthor, "second author", nil)
	first := mustUpsert(t, s, model.NodeTypeAuthor, "first author", nil)

	if err := s.UpsertEdge(ctx, model.EdgeAuthoredBy, paper.ID, second.ID, map[string]string{model.EdgeAttrPosition: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertEdge(ctx, model.EdgeAuthoredBy, paper.ID, first.ID, map[string]string{model.EdgeAttrPosition: "0"}); err != nil {
		t.Fatal(err)
	}

	authors, err := s.Neighbors(ctx, paper.ID, model.EdgeAuthoredBy, graph.Outgoing)
	if err != nil {
		t.Fatalf("Neighbors failed: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(authors))
	}
	if authors[0].ID != first.ID || authors[1].ID != second.ID {
		t.Error("authors not ordered by position attribute")
	}
}

func TestTraverseHandlesCycles(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := mustUpsert(t, s, model.NodeTypePaper, "a", nil)
	b := mustUpsert(t, s, model.NodeTypePaper, "b", nil)
	c := mustUpsert(t, s, model.NodeTypePaper, "c", nil)

	// a -> b -> c -> a is a valid citation cycle.
	for _, e := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, a.ID}} {
		if err := s.UpsertEdge(ctx, model.EdgeCites, e[0], e[1], nil); err != nil {
			t.Fatal(err)
		}
	}

	reached, err := s.Traverse(ctx, a.ID, []model.EdgeType{model.EdgeCites}, 0)
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}
	if len(reached) != 2 {
		t.Errorf("got %d reached nodes, want 2 (b and c, not a)", len(reached))
	}
	for _, id := range reached {
		if id == a.ID {
			t.Error("start node included in traversal result")
		}
	}
}

func TestTraverseMaxDepth(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := mustUpsert(t, s, model.NodeTypePaper, "a", nil)
	b := mustUpsert(t, s, model.NodeTypePaper, "b", nil)
	c := mustUpsert(t, s, model.NodeTypePaper, "c", nil)

	if err := s.UpsertEdge(ctx, model.EdgeCites, a.ID, b.ID, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertEdge(ctx, model.EdgeCites, b.ID, c.ID, nil); err != nil {
		t.Fatal(err)
	}

	reached, err := s.Traverse(ctx, a.ID, []model.EdgeType{model.EdgeCites}, 1)
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}
	if len(reached) != 1 || reached[0] != b.ID {
		t.Errorf("depth-1 traversal = %v, want just %s", reached, b.ID)
	}
}
