package domain

import (
	"reflect"
	"sort"
)

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for change notifications.
type SnapshotDiff struct {
	// Version is the edit counter of the newer snapshot. Always present.
	Version int `json:"version"`

	RootID         *string `json:"root_id,omitempty"`
	SelectedNodeID *string `json:"selected_node_id,omitempty"`

	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, every node of newSnap is reported as added (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}
	diff := &SnapshotDiff{Version: newSnap.Version}

	if oldSnap == nil || oldSnap.RootID != newSnap.RootID {
		diff.RootID = &newSnap.RootID
	}
	if oldSnap == nil || oldSnap.SelectedNodeID != newSnap.SelectedNodeID {
		sel := newSnap.SelectedNodeID
		diff.SelectedNodeID = &sel
	}

	var oldNodes map[string]*Node
	if oldSnap != nil {
		oldNodes = oldSnap.Nodes
	}

	for id, n := range newSnap.Nodes {
		prev, exists := oldNodes[id]
		switch {
		case !exists:
			diff.Added = append(diff.Added, id)
		case prev != n && !reflect.DeepEqual(prev, n):
			diff.Changed = append(diff.Changed, id)
		}
	}
	for id := range oldNodes {
		if _, exists := newSnap.Nodes[id]; !exists {
			diff.Removed = append(diff.Removed, id)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)

	if oldSnap != nil && oldSnap.Version == newSnap.Version && diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty reports whether the diff carries no node, root or selection change.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.RootID == nil &&
		d.SelectedNodeID == nil &&
		len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Changed) == 0
}
