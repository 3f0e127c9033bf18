package pgx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/model"
)

// UpsertEdge records a directed edge, idempotently. Edge attributes
// merge last-write-wins.
func (s *Store) UpsertEdge(ctx context.Context, edgeType model.EdgeType, fromID, toID string, attrs map[string]string) error {
	from, err := s.GetNode(ctx, fromID)
	if err != nil {
		return err
	}
	to, err := s.GetNode(ctx, toID)
	if err != nil {
		return err
	}
	if err := graph.ValidateEdge(edgeType, from, to); err != nil {
		return err
	}

	encoded, err := encodeAttrs(cleanAttrs(attrs))
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO edges (type, from_id, to_id, attrs) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (type, from_id, to_id) DO UPDATE SET attrs = edges.attrs || EXCLUDED.attrs`,
		string(edgeType), fromID, toID, encoded,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// Neighbors returns the nodes connected to id over the given edge type.
// AUTHORED_BY neighbors come back in author-position order.
func (s *Store) Neighbors(ctx context.Context, id string, edgeType model.EdgeType, dir graph.Direction) ([]*model.Node, error) {
	if _, err := s.GetNode(ctx, id); err != nil {
		return nil, err
	}

	type neighbor struct {
		node     *model.Node
		position int
	}
	var found []neighbor

	collect := func(query string) error {
		rows, err := s.pool.Query(ctx, query, id, string(edgeType))
		if err != nil {
			return fmt.Errorf("failed to load neighbors of %s: %w", id, err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				node     model.Node
				rawType  string
				rawAttrs []byte
				edgeRaw  []byte
			)
			if err := rows.Scan(&node.ID, &rawType, &node.Key, &rawAttrs, &node.CreatedAt, &edgeRaw); err != nil {
				return fmt.Errorf("failed to scan neighbor: %w", err)
			}
			node.Type = model.NodeType(rawType)
			if err := json.Unmarshal(rawAttrs, &node.Attrs); err != nil {
				return fmt.Errorf("failed to decode neighbor attrs: %w", err)
			}
			var edgeAttrs map[string]string
			if err := json.Unmarshal(edgeRaw, &edgeAttrs); err != nil {
				return fmt.Errorf("failed to decode edge attrs: %w", err)
			}
			found = append(found, neighbor{node: &node, position: edgePosition(edgeAttrs)})
		}
		return rows.Err()
	}

	if dir == graph.Outgoing || dir == graph.Both {
		err := collect(`SELECT n.id, n.type, n.key, n.attrs, n.created_at, e.attrs
			FROM edges e JOIN nodes n ON n.id = e.to_id
			WHERE e.from_id = $1 AND e.type = $2`)
		if err != nil {
			return nil, err
		}
	}
	if dir == graph.Incoming || dir == graph.Both {
		err := collect(`SELECT n.id, n.type, n.key, n.attrs, n.created_at, e.attrs
			FROM edges e JOIN nodes n ON n.id = e.from_id
			WHERE e.to_id = $1 AND e.type = $2`)
		if err != nil {
			return nil, err
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
		nodes[i] = n.node
	}
	return nodes, nil
}

// Traverse walks outgoing edges of the given types breadth-first from
// startID, up to maxDepth hops (maxDepth <= 0 means unbounded).
func (s *Store) Traverse(ctx context.Context, startID string, edgeTypes []model.EdgeType, maxDepth int) ([]string, error) {
	if _, err := s.GetNode(ctx, startID); err != nil {
		return nil, err
	}

	types := make([]string, len(edgeTypes))
	for i, t := range edgeTypes {
		types[i] = string(t)
	}

	visited := map[string]struct{}{startID: {}}
	frontier := []string{startID}
	var reached []string

	for depth := 0; len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth >= maxDepth {
			break
		}
		rows, err := s.pool.Query(ctx,
			`SELECT DISTINCT to_id FROM edges WHERE from_id = ANY($1) AND type = ANY($2)`,
			frontier, types,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to expand frontier: %w", err)
		}

		var next []string
		for rows.Next() {
			var toID string
			if err := rows.Scan(&toID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan edge: %w", err)
			}
			if _, seen := visited[toID]; seen {
				continue
			}
			visited[toID] = struct{}{}
			reached = append(reached, toID)
			next = append(next, toID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		frontier = next
	}

	sort.Strings(reached)
	return reached, nil
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
