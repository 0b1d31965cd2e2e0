package http

import (
	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/aretw0/arbor/pkg/validator"
)

// StateView is the JSON form of an editor's displayed state.
type StateView struct {
	WorkflowID     string                  `json:"workflow_id"`
	Version        int                     `json:"version"`
	RootID         string                  `json:"root_id"`
	SelectedNodeID string                  `json:"selected_node_id,omitempty"`
	Nodes          map[string]*domain.Node `json:"nodes"`
	CanUndo        bool                    `json:"can_undo"`
	CanRedo        bool                    `json:"can_redo"`
	HistoryLen     int                     `json:"history_len"`
	HistoryIndex   int                     `json:"history_index"`
}

// EditResponse reports the outcome of an edit request.
// Applied is false when the edit was a no-op (unknown node, invalid index, ...).
type EditResponse struct {
	Applied bool      `json:"applied"`
	NodeID  string    `json:"node_id,omitempty"`
	State   StateView `json:"state"`
}

// LayoutView carries everything needed to draw the tree.
type LayoutView struct {
	Positions   layout.Positions    `json:"positions"`
	Connections []layout.Connection `json:"connections"`
	Bounds      layout.Rect         `json:"bounds"`
}

// ValidationView is the advisory report of the displayed workflow.
type ValidationView struct {
	Warnings []validator.Warning `json:"warnings"`
	Errors   int                 `json:"errors"`
	Count    int                 `json:"warning_count"`
	Complete bool                `json:"complete"`
}

// AddNodeRequest is the body of POST /workflows/{id}/nodes.
type AddNodeRequest struct {
	ParentID    string `json:"parent_id"`
	Type        string `json:"type"`
	BranchLabel string `json:"branch_label,omitempty"`
}

// SelectRequest is the body of PUT /workflows/{id}/selection.
type SelectRequest struct {
	NodeID string `json:"node_id"`
}

// LabelRequest is the body of the branch label routes.
type LabelRequest struct {
	Label string `json:"label"`
}

func stateView(ed *arbor.Editor) StateView {
	s := ed.Current()
	return StateView{
		WorkflowID:     ed.WorkflowID(),
		Version:        s.Version,
		RootID:         s.RootID,
		SelectedNodeID: s.SelectedNodeID,
		Nodes:          s.Nodes,
		CanUndo:        ed.CanUndo(),
		CanRedo:        ed.CanRedo(),
		HistoryLen:     ed.HistoryLen(),
		HistoryIndex:   ed.Index(),
	}
}

func layoutView(ed *arbor.Editor) LayoutView {
	s := ed.Current()
	positions := ed.Layout()
	conns := layout.Connections(s.Nodes, positions)
	if conns == nil {
		conns = []layout.Connection{}
	}
	return LayoutView{
		Positions:   positions,
		Connections: conns,
		Bounds:      layout.Bounds(positions, s.Nodes),
	}
}

func validationView(ed *arbor.Editor) ValidationView {
	warnings := ed.Validate()
	if warnings == nil {
		warnings = []validator.Warning{}
	}
	errs, warns := validator.Count(warnings)
	return ValidationView{
		Warnings: warnings,
		Errors:   errs,
		Count:    warns,
		Complete: validator.IsComplete(ed.Current().Nodes),
	}
}
