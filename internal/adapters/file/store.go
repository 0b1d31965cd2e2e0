package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store implements ports.DocumentStore using the local filesystem.
// It stores one document per workflow, encoded as JSON or YAML.
type Store struct {
	BasePath string
	Format   domain.Format
}

// New creates a new Store with the given base path, writing JSON.
// If basePath is empty, it defaults to ".arbor/workflows".
func New(basePath string) *Store {
	return NewWithFormat(basePath, domain.FormatJSON)
}

// NewWithFormat creates a Store that writes documents in the given format.
func NewWithFormat(basePath string, format domain.Format) *Store {
	if basePath == "" {
		basePath = filepath.Join(".arbor", "workflows")
	}
	if format == "" {
		format = domain.FormatJSON
	}
	return &Store{BasePath: basePath, Format: format}
}

func (s *Store) path(workflowID string) string {
	return filepath.Join(s.BasePath, workflowID+s.Format.Extension())
}

func checkID(workflowID string) error {
	if workflowID == "" {
		return fmt.Errorf("workflowID cannot be empty")
	}
	if strings.ContainsAny(workflowID, `/\`) || workflowID == "." || workflowID == ".." {
		return fmt.Errorf("invalid workflowID %q", workflowID)
	}
	return nil
}

// Save persists the document atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, workflowID string, doc *domain.Document) error {
	if err := checkID(workflowID); err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure workflow directory: %w", err)
	}

	data, err := domain.EncodeDocument(doc, s.Format)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	// Same directory as the destination: rename is only atomic within a filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+workflowID+"-*"+s.Format.Extension())
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(workflowID)
	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing workflow file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to workflow file: %w", err)
	}
	return nil
}

// Load reads and decodes the workflow document.
func (s *Store) Load(ctx context.Context, workflowID string) (*domain.Document, error) {
	if err := checkID(workflowID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	doc, err := domain.DecodeDocument(data, s.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", workflowID, err)
	}
	return doc, nil
}

// Delete removes the workflow file.
func (s *Store) Delete(ctx context.Context, workflowID string) error {
	if err := checkID(workflowID); err != nil {
		return err
	}

	err := os.Remove(s.path(workflowID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete workflow file: %w", err)
	}
	return nil
}

// List returns the IDs of all workflows stored in the configured format.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	ext := s.Format.Extension()
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	return ids, nil
}
