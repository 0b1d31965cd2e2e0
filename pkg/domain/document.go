package domain

import (
	"fmt"
	"time"
)

// isoLayout matches the millisecond ISO-8601 form used by exported documents.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is the persisted/exported form of a workflow.
//
// Version, CreatedAt and SavedAt are round-tripped metadata only; loading
// ignores them for behavior purposes.
type Document struct {
	Nodes     map[string]*Node `json:"nodes" yaml:"nodes"`
	RootID    string           `json:"rootId" yaml:"rootId"`
	Version   string           `json:"version" yaml:"version"`
	CreatedAt string           `json:"createdAt" yaml:"createdAt"`
	SavedAt   string           `json:"savedAt" yaml:"savedAt"`

	// Sealed carries the encrypted form of the whole document when a store
	// encrypts at rest. Such a document has no nodes until it is opened.
	Sealed string `json:"sealed,omitempty" yaml:"sealed,omitempty"`
}

// NewDocument exports a snapshot. Selection and the edit counter are not persisted.
func NewDocument(s *Snapshot, createdAt, savedAt time.Time) *Document {
	nodes := make(map[string]*Node, len(s.Nodes))
	for id, n := range s.Nodes {
		nodes[id] = n.Clone()
	}
	return &Document{
		Nodes:     nodes,
		RootID:    s.RootID,
		Version:   DocumentFormatVersion,
		CreatedAt: FormatTimestamp(createdAt),
		SavedAt:   FormatTimestamp(savedAt),
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	if d.Nodes != nil {
		c.Nodes = make(map[string]*Node, len(d.Nodes))
		for id, n := range d.Nodes {
			if n != nil {
				n = n.Clone()
			}
			c.Nodes[id] = n
		}
	}
	return &c
}

// FormatTimestamp renders t as a UTC ISO-8601 string with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseTimestamp reads an ISO-8601 timestamp written by FormatTimestamp
// (or any RFC 3339 value).
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Validate checks the minimum a document needs to be loaded:
// a nodes mapping and a rootId naming one of its nodes.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	if d.Sealed != "" {
		return fmt.Errorf("%w: document is encrypted", ErrInvalidDocument)
	}
	if d.Nodes == nil {
		return fmt.Errorf("%w: missing nodes", ErrInvalidDocument)
	}
	if d.RootID == "" {
		return fmt.Errorf("%w: missing rootId", ErrInvalidDocument)
	}
	if n, ok := d.Nodes[d.RootID]; !ok || n == nil {
		return fmt.Errorf("%w: rootId %q is not a node", ErrInvalidDocument, d.RootID)
	}
	for id, n := range d.Nodes {
		if n == nil {
			return fmt.Errorf("%w: node %q is null", ErrInvalidDocument, id)
		}
	}
	return nil
}

// Snapshot converts the document into a fresh Snapshot at version 0 with no selection.
// Node ids are taken from the mapping keys when the node omits them.
// The document must have passed Validate.
func (d *Document) Snapshot() *Snapshot {
	nodes := make(map[string]*Node, len(d.Nodes))
	for id, n := range d.Nodes {
		c := n.Clone()
		if c.ID == "" {
			c.ID = id
		}
		nodes[id] = c
	}
	return &Snapshot{
		Nodes:  nodes,
		RootID: d.RootID,
	}
}
