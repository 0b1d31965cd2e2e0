/*
Package session keeps one arbor.Editor per workflow and serializes access to it.

It integrates the in-process editor cache with per-workflow locks, an optional
distributed lock for multi-replica deployments, and the long-term DocumentStore.
The HTTP and MCP adapters go through a Manager so that concurrent requests for
the same workflow never interleave their read-compute-commit cycles.
*/
package session
