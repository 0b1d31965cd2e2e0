package domain

const (
	// StartNodeID is the id of the Start node of a fresh workflow.
	StartNodeID = "start-node"

	// StartLabel is the label of the Start node of a fresh workflow.
	StartLabel = "Start"

	// MaxHistory bounds the undo/redo history.
	MaxHistory = 50

	// MaxLabelLength bounds node labels (in runes).
	MaxLabelLength = 50

	// DocumentFormatVersion is written into every exported Document.
	// It is unrelated to Snapshot.Version, the internal edit counter.
	DocumentFormatVersion = "1.0"
)

// DefaultBranchLabels returns the labels given to a new Branch node.
// A fresh slice is returned on every call.
func DefaultBranchLabels() []string {
	return []string{"True", "False"}
}
