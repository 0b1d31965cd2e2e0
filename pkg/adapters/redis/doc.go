// Package redis provides Redis-backed implementations of the arbor ports:
// a DocumentStore and a DistributedLocker.
package redis
