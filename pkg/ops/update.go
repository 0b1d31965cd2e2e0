package ops

import (
	"fmt"
	"reflect"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// NodeUpdate lists the attributes UpdateNode may overwrite. Nil fields are left alone.
// The node id is not part of it: identity never changes.
type NodeUpdate struct {
	Label        *string              `json:"label,omitempty" mapstructure:"label"`
	Type         *domain.NodeType     `json:"type,omitempty" mapstructure:"type"`
	Children     *[]string            `json:"children,omitempty" mapstructure:"children"`
	ParentID     *string              `json:"parentId,omitempty" mapstructure:"parentId"`
	BranchLabel  *string              `json:"branchLabel,omitempty" mapstructure:"branchLabel"`
	BranchLabels *[]string            `json:"branchLabels,omitempty" mapstructure:"branchLabels"`
	Metadata     *domain.NodeMetadata `json:"metadata,omitempty" mapstructure:"metadata"`
}

// IsEmpty reports whether the update carries no field.
func (u NodeUpdate) IsEmpty() bool {
	return u.Label == nil && u.Type == nil && u.Children == nil && u.ParentID == nil &&
		u.BranchLabel == nil && u.BranchLabels == nil && u.Metadata == nil
}

func (u NodeUpdate) apply(n *domain.Node) {
	if u.Label != nil {
		n.Label = TruncateLabel(*u.Label)
	}
	if u.Type != nil {
		n.Type = *u.Type
	}
	if u.Children != nil {
		n.Children = append([]string{}, (*u.Children)...)
	}
	if u.ParentID != nil {
		n.ParentID = *u.ParentID
	}
	if u.BranchLabel != nil {
		n.BranchLabel = *u.BranchLabel
	}
	if u.BranchLabels != nil {
		n.BranchLabels = append([]string{}, (*u.BranchLabels)...)
	}
	if u.Metadata != nil {
		n.Metadata = *u.Metadata
	}
}

// SetLabel is a convenience constructor for the most common update.
func SetLabel(label string) NodeUpdate {
	return NodeUpdate{Label: &label}
}

// DecodeUpdate converts a loose payload (decoded JSON, MCP arguments) into a NodeUpdate.
// Unknown keys, including "id", are rejected so that identity can never be overwritten.
func DecodeUpdate(raw map[string]any) (NodeUpdate, error) {
	var u NodeUpdate
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &u,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       nodeTypeHook,
	})
	if err != nil {
		return NodeUpdate{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return NodeUpdate{}, fmt.Errorf("invalid node update: %w", err)
	}
	if u.Type != nil && !u.Type.Valid() {
		return NodeUpdate{}, fmt.Errorf("invalid node update: unknown type %q", *u.Type)
	}
	if u.Type != nil && *u.Type == domain.NodeTypeStart {
		return NodeUpdate{}, fmt.Errorf("invalid node update: only the root is a %s node", domain.NodeTypeStart)
	}
	return u, nil
}

// nodeTypeHook normalizes node types ("Branch" -> "branch").
func nodeTypeHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(domain.NodeType("")) || from.Kind() != reflect.String {
		return data, nil
	}
	t, _ := domain.ParseNodeType(reflect.ValueOf(data).String())
	return t, nil
}
