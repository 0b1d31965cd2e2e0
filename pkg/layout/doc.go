/*
Package layout computes deterministic 2-D positions for a workflow tree.

The layout is a two-pass tree layout: a post-order pass computes the width of
every subtree, and a pre-order pass places each node centered over its
children. Rows use a uniform pitch (NodeHeight + VerticalGap) regardless of the
footprint of the nodes in the row.

The layout is always recomputed from scratch. Cache memoizes the result for one
Snapshot version and drops it as soon as the version changes.
*/
package layout
