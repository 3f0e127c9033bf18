// Package memory provides the in-memory graph store. It is the default
// backend for the CLI and the reference implementation the tests run
// against; the pgx backend mirrors its semantics on Postgres.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/model"
)

// Store is an in-memory graph.Store. All operations are safe for
// concurrent use; UpsertNode performs its check-and-create under a
// single lock so duplicate keys cannot race into two nodes.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*model.Node
	byKey map[model.NodeType]map[string]string

	// adjacency: from -> edge type -> to -> edge attrs
	out map[string]map[model.EdgeType]map[string]map[string]string
	in  map[string]map[model.EdgeType]map[string]struct{}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[string]*model.Node),
		byKey: make(map[model.NodeType]map[string]string),
		out:   make(map[string]map[model.EdgeType]map[string]map[string]string),
		in:    make(map[string]map[model.EdgeType]map[string]struct{}),
	}
}

// UpsertNode returns the node with the given type and key, creating it
// when absent. See graph.Store for the merge policy.
func (s *Store) UpsertNode(ctx context.Context, nodeType model.NodeType, key string, attrs map[string]string) (*model.Node, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("empty canonical key for node type %s", nodeType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.byKey[nodeType]
	if !ok {
		keys = make(map[string]string)
		s.byKey[nodeType] = keys
	}

	if id, exists := keys[key]; exists {
		node := s.nodes[id]
		merged, _ := graph.MergeAttrs(node.Attrs, attrs)
		node.Attrs = merged
		return cloneNode(node), false, nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate node id: %w", err)
	}
	node := &model.Node{
		ID:        id,
		Type:      nodeType,
		Key:       key,
		Attrs:     cleanAttrs(attrs),
		CreatedAt: time.Now(),
	}
	s.nodes[id] = node
	keys[key] = id
	return cloneNode(node), true, nil
}

// GetNode returns the node with the given id.
func (s *Store) GetNode(ctx context.Context, id string) (*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}
	return cloneNode(node), nil
}

// FindNodeByKey returns the node with the given type and canonical key.
func (s *Store) FindNodeByKey(ctx context.Context, nodeType model.NodeType, key string) (*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[nodeType][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", graph.ErrNotFound, nodeType, key)
	}
	return cloneNode(s.nodes[id]), nil
}

// SetNodeAttrs overwrites the given attributes on a node.
func (s *Store) SetNodeAttrs(ctx context.Context, id string, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}
	if node.Attrs == nil {
		node.Attrs = make(map[string]string, len(attrs))
	}
	maps.Copy(node.Attrs, attrs)
	return nil
}

// UpsertEdge records a directed edge, idempotently.
func (s *Store) UpsertEdge(ctx context.Context, edgeType model.EdgeType, fromID, toID string, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.nodes[fromID]
	if !ok {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, fromID)
	}
	to, ok := s.nodes[toID]
	if !ok {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, toID)
	}
	if err := graph.ValidateEdge(edgeType, from, to); err != nil {
		return err
	}

	byType, ok := s.out[fromID]
	if !ok {
		byType = make(map[model.EdgeType]map[string]map[string]string)
		s.out[fromID] = byType
	}
	targets, ok := byType[edgeType]
	if !ok {
		targets = make(map[string]map[string]string)
		byType[edgeType] = targets
	}
	if existing, ok := targets[toID]; ok {
		maps.Copy(existing, attrs)
	} else {
		targets[toID] = cleanAttrs(attrs)
	}

	inByType, ok := s.in[toID]
	if !ok {
		inByType = make(map[model.EdgeType]map[string]struct{})
		s.in[toID] = inByType
	}
	sources, ok := inByType[edgeType]
	if !ok {
		sources = make(map[string]struct{})
		inByType[edgeType] = sources
	}
	sources[fromID] = struct{}{}
	return nil
}

// Neighbors returns the nodes connected to id over the given edge type.
func (s *Store) Neighbors(ctx context.Context, id string, edgeType model.EdgeType, dir graph.Direction) ([]*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}

	type neighbor struct {
		node     *model.Node
		position int
	}
	var found []neighbor

	if dir == graph.Outgoing || dir == graph.Both {
		for toID, attrs := range s.out[id][edgeType] {
			found = append(found, neighbor{s.nodes[toID], edgePosition(attrs)})
		}
	}
	if dir == graph.Incoming || dir == graph.Both {
		for fromID := range s.in[id][edgeType] {
			found = append(found, neighbor{s.nodes[fromID], edgePosition(s.out[fromID][edgeType][id])})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].position != found[j].position {
			return found[i].position < found[j].position
		}
		return found[i].node.ID < found[j].node.ID
	})

	nodes := make([]*model.Node, len(found))
	for i, n := range found {
		nodes[i] = cloneNode(n.node)
	}
	return nodes, nil
}

// Traverse walks outgoing edges of the given types breadth-first from
// startID, up to maxDepth hops (maxDepth <= 0 means unbounded), and
// returns the reached node ids. Visited tracking makes citation cycles
// terminate.
func (s *Store) Traverse(ctx context.Context, startID string, edgeTypes []model.EdgeType, maxDepth int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[startID]; !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNotFound, startID)
	}

	visited := map[string]struct{}{startID: {}}
	frontier := []string{startID}
	var reached []string

	for depth := 0; len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth >= maxDepth {
			break
		}
		var next []string
		for _, id := range frontier {
			for _, edgeType := range edgeTypes {
				for toID := range s.out[id][edgeType] {
					if _, seen := visited[toID]; seen {
						continue
					}
					visited[toID] = struct{}{}
					reached = append(reached, toID)
					next = append(next, toID)
				}
			}
		}
		frontier = next
	}

	sort.Strings(reached)
	return reached, nil
}

// NodesByType returns all nodes of the given type, ordered by creation.
func (s *Store) NodesByType(ctx context.Context, nodeType model.NodeType) ([]*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []*model.Node
	for _, id := range s.byKey[nodeType] {
		nodes = append(nodes, cloneNode(s.nodes[id]))
	}
	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(ctx context.Context) error {
	return nil
}

func cloneNode(n *model.Node) *model.Node {
	clone := *n
	clone.Attrs = maps.Clone(n.Attrs)
	return &clone
}

func cleanAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func edgePosition(attrs map[string]string) int {
	if attrs == nil {
		return 0
	}
	pos, err := strconv.Atoi(attrs[model.EdgeAttrPosition])
	if err != nil {
		return 0
	}
	return pos
}
