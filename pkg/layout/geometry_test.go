package layout_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/stretchr/testify/assert"
)

func TestFootprint(t *testing.T) {
	assert.Equal(t, layout.Size{Width: 120, Height: 120}, layout.Footprint(domain.NodeTypeBranch))
	assert.Equal(t, layout.Size{Width: 80, Height: 80}, layout.Footprint(domain.NodeTypeEnd))
	assert.Equal(t, layout.Size{Width: 200, Height: 80}, layout.Footprint(domain.NodeTypeStart))
	assert.Equal(t, layout.Size{Width: 200, Height: 80}, layout.Footprint(domain.NodeTypeAction))
}

func TestConnectionPoints(t *testing.T) {
	seg := layout.ConnectionPoints(
		layout.Point{X: 70, Y: 400}, layout.Point{X: 0, Y: 600},
		domain.NodeTypeBranch, domain.NodeTypeEnd,
	)
	assert.Equal(t, layout.Segment{StartX: 130, StartY: 520, EndX: 40, EndY: 600}, seg)

	seg = layout.ConnectionPoints(
		layout.Point{X: 30, Y: 0}, layout.Point{X: 30, Y: 200},
		domain.NodeTypeStart, domain.NodeTypeAction,
	)
	assert.Equal(t, layout.Segment{StartX: 130, StartY: 80, EndX: 130, EndY: 200}, seg)
}

func TestCurvePath(t *testing.T) {
	path := layout.CurvePath(layout.Segment{StartX: 130, StartY: 520, EndX: 40, EndY: 600})
	assert.Equal(t, "M 130 520 C 130 560, 40 560, 40 600", path)

	path = layout.CurvePath(layout.Segment{StartX: 0.5, StartY: 0, EndX: 10, EndY: 5})
	assert.Equal(t, "M 0.5 0 C 0.5 2.5, 10 2.5, 10 5", path)
}

func TestBounds(t *testing.T) {
	nodes := branchScenario()
	r := layout.Bounds(layout.Compute(nodes, "start"), nodes)
	assert.Equal(t, layout.Rect{MinX: 0, MinY: 0, MaxX: 260, MaxY: 680}, r)
	assert.Equal(t, 260.0, r.Width())
	assert.Equal(t, 680.0, r.Height())

	assert.Equal(t, layout.Rect{}, layout.Bounds(nil, nodes))
}
