/*
Package domain contains the core data model of the Arbor workflow editor.

It defines the workflow tree (Nodes owned by an immutable-by-convention Snapshot),
the persisted Document format, and the events emitted when the editor history
changes. The package is kept pure: no I/O, no persistence, no rendering.

# Key Entities

  - Node: a typed vertex of the workflow tree (Start, Action, Branch or End).
  - Snapshot: the full state of the tree at one point in edit history.
  - Document: the exported/persisted form of a Snapshot.
  - SnapshotDiff: the changes between two Snapshots, used for change notifications.
*/
package domain
