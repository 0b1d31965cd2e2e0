package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"

	_ "modernc.org/sqlite"
)

// Store implements ports.DocumentStore on top of SQLite.
//
// It expects an *sql.DB that uses a SQLite driver. Open uses
// "modernc.org/sqlite", which this package registers.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dsn and initializes the schema.
// In-memory databases are pinned to a single connection, since every
// connection would otherwise see its own empty database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	store, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New initializes the required schema in the given database and returns a new Store.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			root_id TEXT NOT NULL,
			node_count INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			document BLOB NOT NULL
		);`,
	)
	return err
}

// Save inserts or replaces the workflow document.
func (s *Store) Save(ctx context.Context, workflowID string, doc *domain.Document) error {
	data, err := domain.EncodeDocument(doc, domain.FormatJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, root_id, node_count, saved_at, document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			root_id = excluded.root_id,
			node_count = excluded.node_count,
			saved_at = excluded.saved_at,
			document = excluded.document`,
		workflowID,
		doc.RootID,
		len(doc.Nodes),
		doc.SavedAt,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}
	return nil
}

// Load reads the workflow document.
func (s *Store) Load(ctx context.Context, workflowID string) (*domain.Document, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM workflows WHERE id = ?`, workflowID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	doc, err := domain.DecodeDocument(data, domain.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", workflowID, err)
	}
	return doc, nil
}

// Delete removes the workflow row.
func (s *Store) Delete(ctx context.Context, workflowID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", workflowID, err)
	}
	return nil
}

// List returns all workflow IDs ordered by id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM workflows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan workflow id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
