// Package pgx provides the Postgres-backed graph store and embedding
// index. It mirrors the semantics of the in-memory implementations on
// top of pgx and pgvector; schema management runs through embedded
// golang-migrate migrations.
package pgx

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/scholia-ai/scholia/pkg/graph"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/vector"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store implements graph.Store and vector.Index on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ graph.Store  = (*Store)(nil)
	_ vector.Index = (*Store)(nil)
)

// New connects to the database and registers the pgvector types on
// every new connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate applies all pending schema migrations. The URL scheme is
// rewritten to the pgx/v5 migrate driver, which is the only database
// driver linked in.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			databaseURL = "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
			break
		}
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("[Store] Migrations applied")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
