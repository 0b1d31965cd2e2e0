package domain

import "errors"

// ErrWorkflowNotFound is returned when a workflow ID cannot be found in the store.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrInvalidDocument is returned when an external document lacks the fields required to load it.
var ErrInvalidDocument = errors.New("invalid workflow document")

// ErrUnsupportedFormat is returned when a document format is neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrNoStore is returned by Save and Open when the editor has no document store.
var ErrNoStore = errors.New("no document store configured")
