package layout

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aretw0/arbor/pkg/domain"
)

// Layout constants, in diagram units.
const (
	NodeWidth      = 200
	NodeHeight     = 80
	HorizontalGap  = 100
	VerticalGap    = 120
	BranchNodeSize = 120
	EndNodeSize    = 80
)

// RowPitch is the vertical distance between two depths.
const RowPitch = NodeHeight + VerticalGap

// Point is the top-left corner of a node footprint.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a footprint.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Footprint returns the fixed size of a node of the given type.
// Branch and End nodes are square; every other type shares the default rectangle.
func Footprint(t domain.NodeType) Size {
	switch t {
	case domain.NodeTypeBranch:
		return Size{Width: BranchNodeSize, Height: BranchNodeSize}
	case domain.NodeTypeEnd:
		return Size{Width: EndNodeSize, Height: EndNodeSize}
	default:
		return Size{Width: NodeWidth, Height: NodeHeight}
	}
}

// Segment is a connector between a parent and a child.
type Segment struct {
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`
}

// ConnectionPoints returns the connector endpoints: the bottom-center of the
// parent footprint and the top-center of the child footprint.
func ConnectionPoints(parent, child Point, parentType, childType domain.NodeType) Segment {
	ps := Footprint(parentType)
	cs := Footprint(childType)
	return Segment{
		StartX: parent.X + ps.Width/2,
		StartY: parent.Y + ps.Height,
		EndX:   child.X + cs.Width/2,
		EndY:   child.Y,
	}
}

// CurvePath describes a smooth vertical S-curve between the segment ends as an
// SVG cubic Bezier path. Both control points sit on the vertical midpoint, each
// aligned with its own endpoint.
func CurvePath(seg Segment) string {
	midY := (seg.StartY + seg.EndY) / 2
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(seg.StartX), num(seg.StartY),
		num(seg.StartX), num(midY),
		num(seg.EndX), num(midY),
		num(seg.EndX), num(seg.EndY),
	)
}

// num formats coordinates without a trailing ".0" for whole numbers.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width of the box.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height of the box.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Bounds returns the box enclosing every positioned node footprint.
// An empty position set yields a zero Rect.
func Bounds(positions Positions, nodes map[string]*domain.Node) Rect {
	if len(positions) == 0 {
		return Rect{}
	}
	r := Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for id, p := range positions {
		var size Size
		if n, ok := nodes[id]; ok && n != nil {
			size = Footprint(n.Type)
		} else {
			size = Footprint(domain.NodeTypeAction)
		}
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X+size.Width)
		r.MaxY = math.Max(r.MaxY, p.Y+size.Height)
	}
	return r
}
