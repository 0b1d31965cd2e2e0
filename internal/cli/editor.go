package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// OpenEditor returns an editor on the configured workflow. When path is set
// the workflow is imported from that document file (format from its
// extension); otherwise it is opened from store.
func (c Config) OpenEditor(ctx context.Context, path string, store ports.DocumentStore, logger *slog.Logger) (*arbor.Editor, error) {
	ed := arbor.New(
		arbor.WithStore(store),
		arbor.WithWorkflowID(c.workflowID()),
		arbor.WithLogger(logger),
	)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := ed.Import(ctx, data, domain.FormatFromPath(path)); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", path, err)
		}
		return ed, nil
	}

	if err := ed.Open(ctx); err != nil {
		return nil, err
	}
	return ed, nil
}

func (c Config) workflowID() string {
	if c.WorkflowID == "" {
		return arbor.DefaultWorkflowID
	}
	return c.WorkflowID
}
