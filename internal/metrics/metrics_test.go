package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Hooks(t *testing.T) {
	ctx := context.Background()
	c := New()
	ed := arbor.New(
		arbor.WithHooks(c.Hooks("flow")),
		arbor.WithLayoutObserver(c.ObserveLayout),
	)

	id, ok := ed.AddNode(ctx, domain.StartNodeID, domain.NodeTypeAction, "")
	require.True(t, ok)
	ed.AddNode(ctx, id, domain.NodeTypeEnd, "")
	ed.DeleteNode(ctx, domain.StartNodeID)
	ed.Undo(ctx)
	ed.Redo(ctx)
	ed.Layout()
	ed.Layout()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.edits.WithLabelValues("add_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.noops.WithLabelValues("delete_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.moves.WithLabelValues("undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.moves.WithLabelValues("redo")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.history.WithLabelValues("flow")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.layout), "histogram is a single series")
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveLayout(time.Millisecond)
	c.Hooks("flow").OnApply(context.Background(), &domain.EditEvent{Op: "add_node", HistoryLen: 2})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `arbor_edits_total{op="add_node"} 1`)
	assert.Contains(t, string(body), "arbor_layout_duration_seconds_count 1")
	assert.Contains(t, string(body), `arbor_history_depth{workflow="flow"} 2`)
}
