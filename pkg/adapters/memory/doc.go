// Package memory provides an in-memory DocumentStore for tests and single-process use.
package memory
