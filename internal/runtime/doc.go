// Package runtime holds the edit history engine behind arbor.Editor.
//
// The Engine owns a bounded, linear history of snapshots and the cursor into
// it. Operations from pkg/ops are applied against the current snapshot; a
// result that differs by identity is committed, anything else is a no-op.
package runtime
