package tui

import (
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer func(string) (string, error)

// NewRenderer returns a glamour-backed markdown renderer.
// Word wrap is set to width; 0 keeps glamour's default.
func NewRenderer(width int) Renderer {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return Plain
	}
	return r.Render
}

// NewPlainRenderer renders with the ASCII style, suitable for pipes and logs.
func NewPlainRenderer() Renderer {
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("ascii"), glamour.WithWordWrap(0))
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns the markdown untouched.
func Plain(markdown string) (string, error) {
	return markdown, nil
}
