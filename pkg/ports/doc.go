/*
Package ports defines the driven ports (interfaces) of the arbor editor.

These interfaces decouple the editor from storage and coordination backends.

# Key Interfaces

  - DocumentStore: persists workflow documents by workflow id (memory, file, Redis, SQLite).
  - DistributedLocker: serializes edits of one workflow across replicas.
*/
package ports
