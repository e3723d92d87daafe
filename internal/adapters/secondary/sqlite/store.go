// Package sqlite persists the registry catalog in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	log "github.com/sirupsen/logrus"

	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/ports/output"
)

const schema = `
CREATE TABLE IF NOT EXISTS families (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS version_records (
	family   TEXT NOT NULL REFERENCES families(name),
	version  TEXT NOT NULL,
	position INTEGER NOT NULL,
	record   TEXT NOT NULL,
	PRIMARY KEY (family, version)
);
`

// MetadataStore keeps one row per version record; the record itself is
// stored as JSON so absent fields survive as null.
type MetadataStore struct {
	db   *sql.DB
	path string
}

var _ ports.MetadataStore = (*MetadataStore)(nil)

// Open creates the database file and its parent directory when missing.
func Open(ctx context.Context, path string) (*MetadataStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	log.WithField("path", path).Debug("opening sqlite metadata store")
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &MetadataStore{db: db, path: path}, nil
}

func (s *MetadataStore) Close() error {
	return s.db.Close()
}

func (s *MetadataStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MetadataStore) Location() string {
	return "sqlite:" + s.path
}

func (s *MetadataStore) Load(ctx context.Context) (*domain.Catalog, error) {
	catalog := domain.NewCatalog()

	famRows, err := s.db.QueryContext(ctx, `SELECT name FROM families ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query families: %w", domain.ErrMetadataIO, err)
	}
	defer famRows.Close()
	for famRows.Next() {
		var name string
		if err := famRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan family: %w", domain.ErrMetadataIO, err)
		}
		catalog.AddFamily(name)
	}
	if err := famRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate families: %w", domain.ErrMetadataIO, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT family, version, record FROM version_records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %w", domain.ErrMetadataIO, err)
	}
	defer rows.Close()
	for rows.Next() {
		var family, version, raw string
		if err := rows.Scan(&family, &version, &raw); err != nil {
			return nil, fmt.Errorf("%w: scan record: %w", domain.ErrMetadataIO, err)
		}
		var rec domain.VersionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
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

// Save replaces every row inside one transaction.
func (s *MetadataStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrMetadataIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM version_records`); err != nil {
		return fmt.Errorf("%w: clear records: %w", domain.ErrMetadataIO, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM families`); err != nil {
		return fmt.Errorf("%w: clear families: %w", domain.ErrMetadataIO, err)
	}

	position := 0
	for i, family := range catalog.Families() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO families (name, position) VALUES (?, ?)`, family, i); err != nil {
			return fmt.Errorf("%w: insert family %s: %w", domain.ErrMetadataIO, family, err)
		}
		for _, version := range catalog.Versions(family) {
			rec, _ := catalog.Record(family, version)
			raw, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("%w: marshal record: %w", domain.ErrMetadataIO, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO version_records (family, version, position, record) VALUES (?, ?, ?, ?)`,
				family, version, position, string(raw),
			); err != nil {
				return fmt.Errorf("%w: insert record %s: %w", domain.ErrMetadataIO, domain.Key(family, version), err)
			}
			position++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrMetadataIO, err)
	}
	return nil
}
