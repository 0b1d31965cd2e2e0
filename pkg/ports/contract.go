package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractDocument builds Start -> Branch -> {End, End} with a few optional fields set.
func contractDocument() *domain.Document {
	nodes := map[string]*domain.Node{
		"start-node": {ID: "start-node", Type: domain.NodeTypeStart, Label: "Start", Children: []string{"b"}, Metadata: domain.NodeMetadata{CreatedAt: 1}},
		"b": {
			ID: "b", Type: domain.NodeTypeBranch, Label: "Approved?", Children: []string{"yes", "no"},
			ParentID: "start-node", BranchLabels: []string{"Yes", "No"}, Metadata: domain.NodeMetadata{CreatedAt: 2},
		},
		"yes": {ID: "yes", Type: domain.NodeTypeEnd, Label: "Ship", Children: []string{}, ParentID: "b", BranchLabel: "Yes", Metadata: domain.NodeMetadata{CreatedAt: 3}},
		"no":  {ID: "no", Type: domain.NodeTypeEnd, Label: "Drop", Children: []string{}, ParentID: "b", BranchLabel: "No", Metadata: domain.NodeMetadata{CreatedAt: 4}},
	}
	return &domain.Document{
		Nodes:     nodes,
		RootID:    "start-node",
		Version:   domain.DocumentFormatVersion,
		CreatedAt: "2025-01-02T03:04:05.006Z",
		SavedAt:   "2025-01-02T03:04:06.007Z",
	}
}

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore implementation
// adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	workflowID := "contract-test-workflow-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := contractDocument()

		err := store.Save(ctx, workflowID, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, workflowID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, doc, loaded)
		assert.NotSame(t, doc.Nodes["b"], loaded.Nodes["b"], "stores must not alias saved nodes")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		doc := contractDocument()
		require.NoError(t, store.Save(ctx, workflowID, doc))

		doc.Nodes["b"].Label = "Changed"
		doc.SavedAt = "2025-01-02T03:05:00.000Z"
		require.NoError(t, store.Save(ctx, workflowID, doc))

		loaded, err := store.Load(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, "Changed", loaded.Nodes["b"].Label)
		assert.Equal(t, doc.SavedAt, loaded.SavedAt)
	})

	t.Run("Mutating Loaded Copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, workflowID, contractDocument()))

		first, err := store.Load(ctx, workflowID)
		require.NoError(t, err)
		first.Nodes["b"].Label = "Mutated"

		second, err := store.Load(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, "Approved?", second.Nodes["b"].Label)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+workflowID)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, workflowID, contractDocument()))

		err := store.Delete(ctx, workflowID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, workflowID)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound, "Load after Delete should return ErrWorkflowNotFound")

		assert.NoError(t, store.Delete(ctx, workflowID), "Delete of a missing workflow is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := workflowID + "-1"
		id2 := workflowID + "-2"
		_ = store.Save(ctx, id1, contractDocument())
		_ = store.Save(ctx, id2, contractDocument())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
