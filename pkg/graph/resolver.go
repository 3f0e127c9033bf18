package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholia-ai/scholia/pkg/model"
	"github.com/scholia-ai/scholia/pkg/normalize"
)

// Resolver maps raw extracted entities onto graph nodes. It computes the
// canonical key for an entity and delegates the atomic check-and-create
// to the store, so two concurrent resolutions of the same entity return
// the same node id.
//
// Authors who are different people but share a normalized name are not
// distinguished. There is no disambiguation signal in paper metadata
// alone; treating the shared name as one node is a documented limitation
// rather than something to guess around.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolvePaper resolves the paper described by meta, creating its node
// when absent. Existing attributes are never overwritten; newly seen
// attributes (a DOI learned from a second source, say) are filled in.
func (r *Resolver) ResolvePaper(ctx context.Context, meta model.DocumentMetadata) (string, bool, error) {
	if strings.TrimSpace(meta.Title) == "" && meta.DOI == "" && meta.ArxivID == "" {
		return "", false, fmt.Errorf("cannot resolve paper without title or external identifier")
	}
	key := normalize.PaperKey(meta)
	attrs := map[string]string{
		model.AttrTitle:      strings.TrimSpace(meta.Title),
		model.AttrAbstract:   strings.TrimSpace(meta.Abstract),
		model.AttrPublished:  meta.Published,
		model.AttrSourcePath: meta.SourcePath,
		model.AttrDOI:        meta.DOI,
		model.AttrArxivID:    meta.ArxivID,
	}
	node, created, err := r.store.UpsertNode(ctx, model.NodeTypePaper, key, attrs)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve paper: %w", err)
	}
	return node.ID, created, nil
}

// ResolveAuthor resolves an author by name.
func (r *Resolver) ResolveAuthor(ctx context.Context, name string) (string, bool, error) {
	return r.resolveNamed(ctx, model.NodeTypeAuthor, model.AttrName, name)
}

// ResolveInstitution resolves an institution by name.
func (r *Resolver) ResolveInstitution(ctx context.Context, name string) (string, bool, error) {
	return r.resolveNamed(ctx, model.NodeTypeInstitution, model.AttrName, name)
}

// ResolveField resolves a research field by label.
func (r *Resolver) ResolveField(ctx context.Context, label string) (string, bool, error) {
	return r.resolveNamed(ctx, model.NodeTypeField, model.AttrLabel, label)
}

func (r *Resolver) resolveNamed(ctx context.Context, nodeType model.NodeType, attrKey, raw string) (string, bool, error) {
	key := normalize.Key(nodeType, raw)
	if key == "" {
		return "", false, fmt.Errorf("cannot resolve %s from empty name", nodeType)
	}
	attrs := map[string]string{attrKey: strings.TrimSpace(raw)}
	node, created, err := r.store.UpsertNode(ctx, nodeType, key, attrs)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %s: %w", nodeType, err)
	}
	return node.ID, created, nil
}
