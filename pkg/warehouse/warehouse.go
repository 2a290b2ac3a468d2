// Package warehouse loads the metadata rows of a completed run into a
// Postgres table so downstream analytics can query export history without
// touching the bucket. The load is an optional post-step: it runs only when
// a DSN is configured and never changes the run's exit status.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docs-export/pkg/domain"
)

// Loader writes export metadata into Postgres.
type Loader struct {
	db *sql.DB
}

// Open connects to Postgres using the pgx driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*Loader, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	return &Loader{db: db}, nil
}

// Close closes the database connection.
func (l *Loader) Close() error {
	return l.db.Close()
}

// LoadMetadata upserts one row per document, keyed by file_id, and returns
// the number of rows written. Re-running a load with the same documents
// leaves the table row count unchanged.
func (l *Loader) LoadMetadata(ctx context.Context, docs []domain.Document) (int, error) {
	if err := l.ensureSchema(ctx); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin warehouse load: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
INSERT INTO document_export (file_id, folder, filename, created_at, modified_at, content_length)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (file_id) DO UPDATE SET
  folder = EXCLUDED.folder,
  filename = EXCLUDED.filename,
  created_at = EXCLUDED.created_at,
  modified_at = EXCLUDED.modified_at,
  content_length = EXCLUDED.content_length,
  exported_at = now();`

	written := 0
	for _, doc := range docs {
		created := sql.NullTime{Time: doc.CreatedAt, Valid: !doc.CreatedAt.IsZero()}
		modified := sql.NullTime{Time: doc.ModifiedAt, Valid: !doc.ModifiedAt.IsZero()}

		if _, err := tx.ExecContext(ctx, upsert, doc.ID, doc.Folder, doc.Title, created, modified, len(doc.Content)); err != nil {
			return 0, fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit warehouse load: %w", err)
	}

	log.Printf("Warehouse load complete: %d rows", written)
	return written, nil
}

func (l *Loader) ensureSchema(ctx context.Context) error {
	// file_id is the primary key, which also gives us idempotent loads.
	const ddl = `
CREATE TABLE IF NOT EXISTS document_export (
  file_id TEXT PRIMARY KEY,
  folder TEXT NOT NULL DEFAULT '',
  filename TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ,
  modified_at TIMESTAMPTZ,
  content_length INTEGER NOT NULL DEFAULT 0,
  exported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create document_export table: %w", err)
	}
	return nil
}
