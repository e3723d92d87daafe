package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/ports/output"
)

const schema = `
CREATE TABLE IF NOT EXISTS registry_family (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_version_record (
	family   TEXT NOT NULL REFERENCES registry_family(name) ON DELETE CASCADE,
	version  TEXT NOT NULL,
	position INTEGER NOT NULL,
	record   JSONB NOT NULL,
	PRIMARY KEY (family, version)
);
`

type metadataStore struct {
	pool *pgxpool.Pool
	name string
}

// NewMetadataStore returns a MetadataStore backed by two tables in the
// pool's database. EnsureSchema must run before first use.
func NewMetadataStore(pool *pgxpool.Pool) ports.MetadataStore {
	cfg := pool.Config().ConnConfig
	return &metadataStore{pool: pool, name: fmt.Sprintf("postgres://%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)}
}

// EnsureSchema creates the registry tables when they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create registry schema: %w", err)
	}
	return nil
}

func (r *metadataStore) Location() string {
	return r.name
}

func (r *metadataStore) Load(ctx context.Context) (*domain.Catalog, error) {
	catalog := domain.NewCatalog()

	famRows, err := r.pool.Query(ctx, `SELECT name FROM registry_family ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query families: %w", domain.ErrMetadataIO, err)
	}
	families, err := pgx.CollectRows(famRows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: scan families: %w", domain.ErrMetadataIO, err)
	}
	for _, f := range families {
		catalog.AddFamily(f)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT family, version, record
		FROM registry_version_record
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %w", domain.ErrMetadataIO, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			family, version string
			raw             []byte
		)
		if err := rows.Scan(&family, &version, &raw); err != nil {
			return nil, fmt.Errorf("%w: scan record: %w", domain.ErrMetadataIO, err)
		}
		var rec domain.VersionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: record %s: %w", domain.ErrMetadataDecode, domain.Key(family, version), err)
		}
		rec.Name, rec.Version = family, version
		catalog.Put(family, version, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %w", domain.ErrMetadataIO, err)
	}
	return catalog, nil
}

func (r *metadataStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrMetadataIO, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM registry_family`); err != nil {
		return fmt.Errorf("%w: clear registry: %w", domain.ErrMetadataIO, err)
	}

	batch := &pgx.Batch{}
	position := 0
	for i, family := range catalog.Families() {
		batch.Queue(`INSERT INTO registry_family (name, position) VALUES ($1, $2)`, family, i)
		for _, version := range catalog.Versions(family) {
			rec, _ := catalog.Record(family, version)
			raw, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("%w: marshal record: %w", domain.ErrMetadataIO, err)
			}
			batch.Queue(`
				INSERT INTO registry_version_record (family, version, position, record)
				VALUES ($1, $2, $3, $4)
			`, family, version, position, raw)
			position++
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: write registry: %w", domain.ErrMetadataIO, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrMetadataIO, err)
	}
	return nil
}
