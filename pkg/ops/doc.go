/*
Package ops implements the structural edits of a workflow tree.

Every operation is pure: it takes a Snapshot and returns a Snapshot. When a
precondition fails (unknown node, End as parent, Start as delete target,
non-Branch target for branch-label edits) the input Snapshot is returned
unchanged, so callers detect "nothing happened" by pointer identity.

Operations never mutate their input. They copy the node map and clone only
the nodes they touch.
*/
package ops
