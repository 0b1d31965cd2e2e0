package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

func TestNewSnapshot(t *testing.T) {
	s := domain.NewSnapshot(domain.FixedClock{T: fixedNow})

	require.Equal(t, domain.StartNodeID, s.RootID)
	root := s.Root()
	require.NotNil(t, root)
	assert.Equal(t, domain.NodeTypeStart, root.Type)
	assert.Equal(t, "Start", root.Label)
	assert.Empty(t, root.Children)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, fixedNow.UnixMilli(), root.Metadata.CreatedAt)
	assert.Equal(t, 0, s.Version)
	assert.Empty(t, s.SelectedNodeID)
}

func TestNode_JSONParentNull(t *testing.T) {
	root := domain.Node{ID: "r", Type: domain.NodeTypeStart, Label: "Start"}
	data, err := json.Marshal(root)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r","type":"start","label":"Start","children":[],"parentId":null,"metadata":{"createdAt":0}}`, string(data))

	var back domain.Node
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "", back.ParentID)
	assert.NotNil(t, back.Children)

	child := domain.Node{ID: "c", Type: domain.NodeTypeAction, ParentID: "r", BranchLabel: "True"}
	data, err = json.Marshal(child)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parentId":"r"`)
	assert.Contains(t, string(data), `"branchLabel":"True"`)
}

func TestNode_Clone(t *testing.T) {
	n := &domain.Node{ID: "b", Type: domain.NodeTypeBranch, Children: []string{"x"}, BranchLabels: []string{"T", "F"}}
	c := n.Clone()
	c.Children[0] = "y"
	c.BranchLabels[0] = "Yes"
	assert.Equal(t, "x", n.Children[0])
	assert.Equal(t, "T", n.BranchLabels[0])
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     *domain.Document
		wantErr bool
	}{
		{"nil document", nil, true},
		{"missing nodes", &domain.Document{RootID: "r"}, true},
		{"missing rootId", &domain.Document{Nodes: map[string]*domain.Node{"r": {ID: "r"}}}, true},
		{"dangling rootId", &domain.Document{Nodes: map[string]*domain.Node{"r": {ID: "r"}}, RootID: "x"}, true},
		{"null node", &domain.Document{Nodes: map[string]*domain.Node{"r": {ID: "r"}, "n": nil}, RootID: "r"}, true},
		{"minimal", &domain.Document{Nodes: map[string]*domain.Node{"r": {ID: "r", Type: domain.NodeTypeStart}}, RootID: "r"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidDocument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	s := domain.NewSnapshot(domain.FixedClock{T: fixedNow})
	s.Nodes["a"] = &domain.Node{ID: "a", Type: domain.NodeTypeAction, Label: "A", ParentID: s.RootID, Children: []string{}, BranchLabel: "True"}
	s.Nodes[s.RootID].Children = []string{"a"}
	s.Version = 7
	s.SelectedNodeID = "a"

	doc := domain.NewDocument(s, fixedNow, fixedNow.Add(time.Hour))
	assert.Equal(t, "1.0", doc.Version)
	assert.Equal(t, "2025-03-04T05:06:07.008Z", doc.CreatedAt)
	assert.Equal(t, "2025-03-04T06:06:07.008Z", doc.SavedAt)

	for _, format := range []domain.Format{domain.FormatJSON, domain.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := domain.EncodeDocument(doc, format)
			require.NoError(t, err)

			back, err := domain.DecodeDocument(data, format)
			require.NoError(t, err)
			require.NoError(t, back.Validate())

			loaded := back.Snapshot()
			assert.Equal(t, 0, loaded.Version, "edit counter is not persisted")
			assert.Empty(t, loaded.SelectedNodeID, "selection is not persisted")
			assert.Equal(t, s.RootID, loaded.RootID)
			assert.Equal(t, []string{"a"}, loaded.Nodes[s.RootID].Children)
			assert.Equal(t, "True", loaded.Nodes["a"].BranchLabel)
			assert.Equal(t, s.RootID, loaded.Nodes["a"].ParentID)
			assert.Equal(t, fixedNow.UnixMilli(), loaded.Nodes[s.RootID].Metadata.CreatedAt)
		})
	}
}

func TestDecodeDocument_Malformed(t *testing.T) {
	_, err := domain.DecodeDocument([]byte("{not json"), domain.FormatJSON)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	_, err = domain.DecodeDocument([]byte("{}"), "xml")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	doc, err := domain.DecodeDocument([]byte(`{"rootId":"r"}`), domain.FormatJSON)
	require.NoError(t, err)
	assert.ErrorIs(t, doc.Validate(), domain.ErrInvalidDocument)
}

func TestDocument_SnapshotFillsMissingIDs(t *testing.T) {
	doc := &domain.Document{
		Nodes:  map[string]*domain.Node{"r": {Type: domain.NodeTypeStart, Children: []string{}}},
		RootID: "r",
	}
	require.NoError(t, doc.Validate())
	assert.Equal(t, "r", doc.Snapshot().Root().ID)
}

func TestParseFormat(t *testing.T) {
	f, err := domain.ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatYAML, f)
	assert.Equal(t, domain.FormatYAML, domain.FormatFromPath("flow.yaml"))
	assert.Equal(t, domain.FormatJSON, domain.FormatFromPath("flow.txt"))
}

func TestIDSources(t *testing.T) {
	seq := domain.NewSequenceSource("n")
	assert.Equal(t, "n-1", seq.NewID())
	assert.Equal(t, "n-2", seq.NewID())

	seen := make(map[string]bool)
	var src domain.UUIDSource
	for i := 0; i < 1000; i++ {
		id := src.NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNodeType(t *testing.T) {
	nt, ok := domain.ParseNodeType(" Branch ")
	assert.True(t, ok)
	assert.Equal(t, domain.NodeTypeBranch, nt)
	assert.Equal(t, "Branch", nt.Title())

	_, ok = domain.ParseNodeType("loop")
	assert.False(t, ok)

	_, ok = domain.ParseNodeType("start")
	assert.True(t, ok)
	_, ok = domain.ParseChildType("Start")
	assert.False(t, ok, "start is only the root")
	nt, ok = domain.ParseChildType("end")
	assert.True(t, ok)
	assert.Equal(t, domain.NodeTypeEnd, nt)
}
