// Package graph defines the knowledge-graph model: typed nodes and
// directed, typed edges with the invariants enforced at the storage
// boundary. Implementations live in subpackages (memory, pgx).
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/scholia-ai/scholia/pkg/model"
)

var (
	// ErrNotFound is returned when a referenced node id does not exist.
	ErrNotFound = errors.New("graph: node not found")

	// ErrInvalidEdge is returned when an edge violates a structural
	// invariant, such as a paper citing itself or an edge connecting
	// node types its edge type does not allow.
	ErrInvalidEdge = errors.New("graph: invalid edge")
)

// Direction selects which edges Neighbors follows relative to a node.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
	Both     Direction = "both"
)

// Store is the abstraction over the property-graph backend. All writes
// are additive: nodes are never deleted as a side effect of another
// write. UpsertNode is an atomic check-and-create per (type, key) so
// concurrent resolutions of the same entity converge on one node.
type Store interface {
	// UpsertNode returns the node with the given type and canonical key,
	// creating it when absent. Attributes merge prefer-existing-non-null:
	// an incoming value only fills attributes the node does not have yet.
	// The returned bool reports whether the node was created.
	UpsertNode(ctx context.Context, nodeType model.NodeType, key string, attrs map[string]string) (*model.Node, bool, error)

	// GetNode returns the node with the given id, or ErrNotFound.
	GetNode(ctx context.Context, id string) (*model.Node, error)

	// FindNodeByKey returns the node with the given type and canonical
	// key, or ErrNotFound.
	FindNodeByKey(ctx context.Context, nodeType model.NodeType, key string) (*model.Node, error)

	// SetNodeAttrs overwrites the given attributes on a node. Unlike
	// UpsertNode merging, existing values are replaced; this is the
	// write path for regenerated summaries and keywords.
	SetNodeAttrs(ctx context.Context, id string, attrs map[string]string) error

	// UpsertEdge records a directed edge. It is idempotent: repeating a
	// (type, from, to) triple has the same effect as storing it once,
	// with edge attributes merged last-write-wins. Fails with ErrNotFound
	// when either endpoint is missing and ErrInvalidEdge when the edge
	// violates an invariant.
	UpsertEdge(ctx context.Context, edgeType model.EdgeType, fromID, toID string, attrs map[string]string) error

	// Neighbors returns the nodes connected to id by edges of the given
	// type in the given direction. AUTHORED_BY neighbors are ordered by
	// author position; other edge types have no ordering guarantee.
	Neighbors(ctx context.Context, id string, edgeType model.EdgeType, dir Direction) ([]*model.Node, error)

	// Traverse returns the set of node ids reachable from startID over
	// the given edge types within maxDepth hops (maxDepth <= 0 means
	// unbounded). The start node is not included. Cycles are handled by
	// tracking visited nodes.
	Traverse(ctx context.Context, startID string, edgeTypes []model.EdgeType, maxDepth int) ([]string, error)

	// NodesByType returns all nodes of the given type.
	NodesByType(ctx context.Context, nodeType model.NodeType) ([]*model.Node, error)

	// Close releases the backend connection. The in-memory store treats
	// this as a no-op.
	Close(ctx context.Context) error
}

// edgeEndpoints maps each edge type to the node types it may connect.
var edgeEndpoints = map[model.EdgeType][2]model.NodeType{
	model.EdgeAuthoredBy:     {model.NodeTypePaper, model.NodeTypeAuthor},
	model.EdgeCites:          {model.NodeTypePaper, model.NodeTypePaper},
	model.EdgeBelongsTo:      {model.NodeTypePaper, model.NodeTypeField},
	model.EdgeAffiliatedWith: {model.NodeTypeAuthor, model.NodeTypeInstitution},
}

// ValidateEdge checks an edge's structural invariants: known edge type,
// matching endpoint node types, and no self-citation. Store
// implementations call this before persisting an edge.
func ValidateEdge(edgeType model.EdgeType, from, to *model.Node) error {
	endpoints, ok := edgeEndpoints[edgeType]
	if !ok {
		return fmt.Errorf("%w: unknown edge type %q", ErrInvalidEdge, edgeType)
	}
	if from.Type != endpoints[0] || to.Type != endpoints[1] {
		return fmt.Errorf("%w: %s cannot connect %s to %s", ErrInvalidEdge, edgeType, from.Type, to.Type)
	}
	if edgeType == model.EdgeCites && from.ID == to.ID {
		return fmt.Errorf("%w: paper cannot cite itself", ErrInvalidEdge)
	}
	return nil
}

// MergeAttrs merges incoming attributes into existing ones with the
// prefer-existing-non-null policy: a key already holding a non-empty
// value is left untouched. Returns the merged map and whether anything
// changed.
func MergeAttrs(existing, incoming map[string]string) (map[string]string, bool) {
	if len(incoming) == 0 {
		return existing, false
	}
	merged := existing
	if merged == nil {
		merged = make(map[string]string, len(incoming))
	}
	changed := false
	for k, v := range incoming {
		if v == "" {
			continue
		}
		if current, ok := merged[k]; ok && current != "" {
			continue
		}
		merged[k] = v
		changed = true
	}
	return merged, changed
}
