package arbor_test

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
)

func Example() {
	ctx := context.Background()
	ed := arbor.New(
		arbor.WithIDSource(domain.NewSequenceSource("n")),
		arbor.WithClock(domain.FixedClock{T: time.Unix(0, 0)}),
	)

	branch, _ := ed.AddNode(ctx, domain.StartNodeID, domain.NodeTypeBranch, "")
	ed.AddNode(ctx, branch, domain.NodeTypeEnd, "Yes")
	ed.AddNode(ctx, branch, domain.NodeTypeEnd, "No")
	fmt.Println(ed.Current().Nodes[branch].Children, len(ed.Validate()))

	ed.Undo(ctx)
	fmt.Println(ed.Current().Nodes[branch].Children, len(ed.Validate()))
	// Output:
	// [n-2 n-3] 0
	// [n-2] 1
}
