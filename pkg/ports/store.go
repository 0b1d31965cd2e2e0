package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// DocumentStore defines the interface for persisting workflow documents.
type DocumentStore interface {
	// Save persists the document for a given workflow ID, replacing any previous one.
	Save(ctx context.Context, workflowID string, doc *domain.Document) error

	// Load retrieves the document for a given workflow ID.
	// Returns domain.ErrWorkflowNotFound if the workflow does not exist.
	Load(ctx context.Context, workflowID string) (*domain.Document, error)

	// Delete removes the document for a given workflow ID.
	// Deleting a missing workflow is not an error.
	Delete(ctx context.Context, workflowID string) error

	// List returns the IDs of all stored workflows.
	List(ctx context.Context) ([]string, error)
}
