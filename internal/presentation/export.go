// Package presentation turns an editor's displayed workflow into the export
// formats served by the CLI and the HTTP API.
package presentation

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/svg"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/validator"
)

// Export formats beyond the document codecs.
const (
	FormatMermaid = "mermaid"
	FormatSVG     = "svg"
)

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch normalize(format) {
	case FormatMermaid:
		return "text/vnd.mermaid; charset=utf-8"
	case FormatSVG:
		return "image/svg+xml"
	case string(domain.FormatYAML):
		return "application/yaml"
	}
	return "application/json"
}

// CheckFormat reports whether format can be exported, wrapping
// domain.ErrUnsupportedFormat when it cannot.
func CheckFormat(format string) error {
	switch normalize(format) {
	case FormatMermaid, FormatSVG:
		return nil
	}
	if _, err := domain.ParseFormat(format); err != nil {
		return fmt.Errorf("failed to export workflow: %w", err)
	}
	return nil
}

// Export renders the editor's displayed snapshot in format.
// Mermaid output flags the nodes that carry validation warnings.
func Export(ed *arbor.Editor, format string) ([]byte, error) {
	switch normalize(format) {
	case FormatMermaid:
		s := ed.Current()
		return []byte(graph.GenerateSnapshot(s, FlaggedNodes(ed.Validate()))), nil
	case FormatSVG:
		return []byte(svg.RenderSnapshot(ed.Current(), ed.Layout())), nil
	}
	f, err := domain.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("failed to export workflow: %w", err)
	}
	return ed.Export(f)
}

// FlaggedNodes returns the ids of nodes named by warnings, in order, without duplicates.
func FlaggedNodes(warnings []validator.Warning) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, w := range warnings {
		if w.NodeID == "" || seen[w.NodeID] {
			continue
		}
		seen[w.NodeID] = true
		ids = append(ids, w.NodeID)
	}
	return ids
}

func normalize(format string) string {
	switch f := strings.ToLower(strings.TrimPrefix(format, ".")); f {
	case "mmd", "mermaid":
		return FormatMermaid
	case "yml", "yaml":
		return string(domain.FormatYAML)
	default:
		return f
	}
}
