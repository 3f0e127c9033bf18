package graph_test

import (
	"context"
	"testing"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/graph/memory"
	"github.com/scholia-ai/scholia/pkg/model"
)

func TestResolveAuthorUniqueness(t *testing.T) {
	store := memory.NewStore()
	r := graph.NewResolver(store)
	ctx := context.Background()

	variants := []string{"Alice Smith", "  alice   smith ", "ALICE SMITH"}

	firstID, created, err := r.ResolveAuthor(ctx, variants[0])
	if err != nil {
		t.Fatalf("ResolveAuthor failed: %v", err)
	}
	if !created {
		t.Error("first resolve should create the node")
	}

	for _, v := range variants[1:] {
		id, created, err := r.ResolveAuthor(ctx, v)
		if err != nil {
			t.Fatalf("ResolveAuthor(%q) failed: %v", v, err)
		}
		if created {
			t.Errorf("ResolveAuthor(%q) created a duplicate node", v)
		}
		if id != firstID {
			t.Errorf("ResolveAuthor(%q) = %s, want %s", v, id, firstID)
		}
	}
}

func TestResolvePaperExternalIdentifier(t *testing.T) {
	store := memory.NewStore()
	r := graph.NewResolver(store)
	ctx := context.Background()

	withDOI := model.DocumentMetadata{
		Title:   "Hybrid Retrieval over Citation Graphs",
		Authors: []string{"Alice Smith"},
		DOI:     "10.1000/hybrid",
	}
	id1, _, err := r.ResolvePaper(ctx, withDOI)
	if err != nil {
		t.Fatalf("ResolvePaper failed: %v", err)
	}

	// Same DOI, retitled by a sloppy extractor: must resolve to the same node.
	retitled := withDOI
	retitled.Title = "Hybrid retrieval over citation graphs (preprint)"
	id2, created, err := r.ResolvePaper(ctx, retitled)
	if err != nil {
		t.Fatalf("ResolvePaper failed: %v", err)
	}
	if created || id1 != id2 {
		t.Errorf("same DOI resolved to different nodes: %s vs %s", id1, id2)
	}
}

func TestResolvePaperMergesNewAttributes(t *testing.T) {
	store := memory.NewStore()
	r := graph.NewResolver(store)
	ctx := context.Background()

	sparse := model.DocumentMetadata{
		Title:   "Entity Resolution at Scale",
		Authors: []string{"Bob Jones"},
	}
	id, _, err := r.ResolvePaper(ctx, sparse)
	if err != nil {
		t.Fatalf("ResolvePaper failed: %v", err)
	}

	enriched := sparse
	enriched.Abstract = "We study entity resolution."
	enriched.Published = "2024-03-01"
	if _, _, err := r.ResolvePaper(ctx, enriched); err != nil {
		t.Fatalf("second ResolvePaper failed: %v", err)
	}

	node, err := store.GetNode(ctx, id)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node.Attr(model.AttrAbstract) != "We study entity resolution." {
		t.Error("abstract not merged onto existing paper node")
	}
	if node.Attr(model.AttrPublished) != "2024-03-01" {
		t.Error("publication date not merged onto existing paper node")
	}
}

func TestResolvePaperRequiresIdentity(t *testing.T) {
	store := memory.NewStore()
	r := graph.NewResolver(store)

	_, _, err := r.ResolvePaper(context.Background(), model.DocumentMetadata{Abstract: "no title"})
	if err == nil {
		t.Error("expected error resolving a paper without title or identifier")
	}
}

func TestResolveFieldEmptyLabel(t *testing.T) {
	store := memory.NewStore()
	r := graph.NewResolver(store)

	_, _, err := r.ResolveField(context.Background(), "   ")
	if err == nil {
		t.Error("expected error resolving an empty field label")
	}
}
