package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/model"
)

const uniqueViolation = "23505"

// UpsertNode returns the node with the given type and key, creating it
// when absent. The check-and-create runs in a transaction with the
// existing row locked; a concurrent insert losing the race is retried
// as a lookup.
func (s *Store) UpsertNode(ctx context.Context, nodeType model.NodeType, key string, attrs map[string]string) (*model.Node, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("empty canonical key for node type %s", nodeType)
	}

	for {
		node, created, err := s.tryUpsertNode(ctx, nodeType, key, attrs)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}
		return node, created, err
	}
}

func (s *Store) tryUpsertNode(ctx context.Context, nodeType model.NodeType, key string, attrs map[string]string) (*model.Node, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	node, err := scanNode(tx.QueryRow(ctx,
		`SELECT id, type, key, attrs, created_at FROM nodes WHERE type = $1 AND key = $2 FOR UPDATE`,
		string(nodeType), key,
	))
	switch {
	case err == nil:
		merged, changed := graph.MergeAttrs(node.Attrs, attrs)
		if changed {
			node.Attrs = merged
			if err := updateAttrs(ctx, tx, node.ID, merged); err != nil {
				return nil, false, err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to commit: %w", err)
		}
		return node, false, nil

	case errors.Is(err, pgx.ErrNoRows):
		id, err := gonanoid.New()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate node id: %w", err)
		}
		cleaned := cleanAttrs(attrs)
		encoded, err := encodeAttrs(cleaned)
		if err != nil {
			return nil, false, err
		}
		var createdAt time.Time
		err = tx.QueryRow(ctx,
			`INSERT INTO nodes (id, type, key, attrs) VALUES ($1, $2, $3, $4) RETURNING created_at`,
			id, string(nodeType), key, encoded,
		).Scan(&createdAt)
		if err != nil {
			return nil, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to commit: %w", err)
		}
		return &model.Node{
			ID:        id,
			Type:      nodeType,
			Key:       key,
			Attrs:     cleaned,
			CreatedAt: createdAt,
		}, true, nil

	default:
		return nil, false, fmt.Errorf("failed to look up node: %w", err)
	}
}

// GetNode returns the node with the given id.
func (s *Store) GetNode(ctx context.Context, id string) (*model.Node, error) {
	node, err := scanNode(s.pool.QueryRow(ctx,
		`SELECT id, type, key, attrs, created_at FROM nodes WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", id, err)
	}
	return node, nil
}

// FindNodeByKey returns the node with the given type and canonical key.
func (s *Store) FindNodeByKey(ctx context.Context, nodeType model.NodeType, key string) (*model.Node, error) {
	node, err := scanNode(s.pool.QueryRow(ctx,
		`SELECT id, type, key, attrs, created_at FROM nodes WHERE type = $1 AND key = $2`,
		string(nodeType), key,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %q", graph.ErrNotFound, nodeType, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find node: %w", err)
	}
	return node, nil
}

// SetNodeAttrs overwrites the given attributes on a node.
func (s *Store) SetNodeAttrs(ctx context.Context, id string, attrs map[string]string) error {
	encoded, err := encodeAttrs(attrs)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE nodes SET attrs = attrs || $2 WHERE id = $1`, id, encoded,
	)
	if err != nil {
		return fmt.Errorf("failed to update node %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}
	return nil
}

// NodesByType returns all nodes of the given type, ordered by creation.
func (s *Store) NodesByType(ctx context.Context, nodeType model.NodeType) ([]*model.Node, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, key, attrs, created_at FROM nodes WHERE type = $1 ORDER BY created_at, id`,
		string(nodeType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s nodes: %w", nodeType, err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*model.Node, error) {
	var (
		node    model.Node
		rawType string
		raw     []byte
	)
	if err := row.Scan(&node.ID, &rawType, &node.Key, &raw, &node.CreatedAt); err != nil {
		return nil, err
	}
	node.Type = model.NodeType(rawType)
	if err := json.Unmarshal(raw, &node.Attrs); err != nil {
		return nil, fmt.Errorf("failed to decode node attrs: %w", err)
	}
	return &node, nil
}

func updateAttrs(ctx context.Context, tx pgx.Tx, id string, attrs map[string]string) error {
	encoded, err := encodeAttrs(attrs)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE nodes SET attrs = $2 WHERE id = $1`, id, encoded)
	if err != nil {
		return fmt.Errorf("failed to merge node attrs: %w", err)
	}
	return nil
}

func encodeAttrs(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attrs: %w", err)
	}
	return encoded, nil
}

func cleanAttrs(attrs map[string]string) map[string]string {
	cleaned := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v != "" {
			cleaned[k] = v
		}
	}
	return cleaned
}
