package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "|_.__/")
	assert.Contains(t, out, "v1.2.3")
}

func TestPlainRenderer(t *testing.T) {
	r := tui.NewPlainRenderer()
	out, err := r("## Validation\n\nNo issues found.\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Validation")
	assert.Contains(t, out, "No issues found.")
}

func TestPlain(t *testing.T) {
	out, err := tui.Plain("# x")
	require.NoError(t, err)
	assert.Equal(t, "# x", out)
}
