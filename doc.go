/*
Package arbor is the core of a workflow-tree editor.

A workflow is a rooted tree of typed nodes (Start, Action, Branch, End) that
a user edits incrementally. arbor keeps the tree consistent under structural
edits, remembers a bounded linear undo/redo history, lays the tree out as a
balanced top-down diagram and reports advisory diagnostics.

# Architecture

The Editor is a thin facade over smaller, pure pieces:

  - pkg/domain: nodes, snapshots, the persisted Document and its codecs.
  - pkg/ops: structural edits as pure Snapshot -> Snapshot functions.
  - pkg/layout: the two-pass tree layout and connector geometry.
  - pkg/validator: orphan, incomplete-branch and cycle detection.
  - internal/runtime: the history engine (apply, undo, redo, load).

Adapters (HTTP, MCP, Redis, SQLite, files) live under pkg/adapters and
internal/adapters and are wired together by cmd/arbor.

# Usage

	ctx := context.Background()
	ed := arbor.New()

	id, _ := ed.AddNode(ctx, domain.StartNodeID, domain.NodeTypeBranch, "")
	ed.AddNode(ctx, id, domain.NodeTypeEnd, "True")
	ed.AddNode(ctx, id, domain.NodeTypeEnd, "False")

	positions := ed.Layout()
	warnings := ed.Validate()

	ed.Undo(ctx)

Edits that do not apply (unknown node, End as a parent, deleting Start) are
silent no-ops: the methods return false and the history is untouched.
*/
package arbor
