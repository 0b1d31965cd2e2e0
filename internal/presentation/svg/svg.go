// Package svg renders a laid-out workflow tree as a standalone SVG document.
package svg

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
)

// Padding around the diagram bounds.
const Padding = 20

var fills = map[domain.NodeType]string{
	domain.NodeTypeStart:  "#dcfce7",
	domain.NodeTypeAction: "#dbeafe",
	domain.NodeTypeBranch: "#fef3c7",
	domain.NodeTypeEnd:    "#fee2e2",
}

// Render draws the positioned nodes and their connections.
// Nodes are drawn in id order after all connections so boxes cover curve ends.
func Render(nodes map[string]*domain.Node, positions layout.Positions, selectedID string) string {
	b := layout.Bounds(positions, nodes)
	var sb strings.Builder

	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s">`+"\n",
		num(b.MinX-Padding), num(b.MinY-Padding),
		num(b.Width()+2*Padding), num(b.Height()+2*Padding),
		num(b.Width()+2*Padding), num(b.Height()+2*Padding),
	)

	for _, c := range layout.Connections(nodes, positions) {
		fmt.Fprintf(&sb, `  <path id="%s" d="%s" fill="none" stroke="#64748b" stroke-width="2"/>`+"\n",
			attr("edge-"+c.ID), c.Path)
		if c.Label != "" {
			fmt.Fprintf(&sb, `  <text x="%s" y="%s" text-anchor="middle" font-size="12" fill="#334155">%s</text>`+"\n",
				num(c.LabelX), num(c.LabelY), html.EscapeString(c.Label))
		}
	}

	ids := make([]string, 0, len(positions))
	for id := range positions {
		if n, ok := nodes[id]; ok && n != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := nodes[id]
		p := positions[id]
		size := layout.Footprint(n.Type)
		stroke, width := "#475569", "1"
		if id == selectedID {
			stroke, width = "#2563eb", "3"
		}
		fmt.Fprintf(&sb, `  <g id="%s" class="node %s">`+"\n", attr("node-"+id), n.Type)
		sb.WriteString("    " + shape(n.Type, p, size, stroke, width) + "\n")
		fmt.Fprintf(&sb, `    <text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle" font-size="14">%s</text>`+"\n",
			num(p.X+size.Width/2), num(p.Y+size.Height/2), html.EscapeString(n.Label))
		sb.WriteString("  </g>\n")
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// RenderSnapshot lays out and renders a snapshot.
func RenderSnapshot(s *domain.Snapshot, positions layout.Positions) string {
	if positions == nil {
		positions = layout.ComputeSnapshot(s)
	}
	return Render(s.Nodes, positions, s.SelectedNodeID)
}

func shape(t domain.NodeType, p layout.Point, size layout.Size, stroke, width string) string {
	fill := fills[t]
	if fill == "" {
		fill = fills[domain.NodeTypeAction]
	}
	cx, cy := p.X+size.Width/2, p.Y+size.Height/2
	switch t {
	case domain.NodeTypeBranch:
		return fmt.Sprintf(`<polygon points="%s,%s %s,%s %s,%s %s,%s" fill="%s" stroke="%s" stroke-width="%s"/>`,
			num(cx), num(p.Y), num(p.X+size.Width), num(cy),
			num(cx), num(p.Y+size.Height), num(p.X), num(cy),
			fill, stroke, width)
	case domain.NodeTypeEnd:
		return fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" fill="%s" stroke="%s" stroke-width="%s"/>`,
			num(cx), num(cy), num(size.Width/2), fill, stroke, width)
	case domain.NodeTypeStart:
		return fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" rx="40" fill="%s" stroke="%s" stroke-width="%s"/>`,
			num(p.X), num(p.Y), num(size.Width), num(size.Height), fill, stroke, width)
	}
	return fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" rx="8" fill="%s" stroke="%s" stroke-width="%s"/>`,
		num(p.X), num(p.Y), num(size.Width), num(size.Height), fill, stroke, width)
}

func attr(s string) string {
	return html.EscapeString(s)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
