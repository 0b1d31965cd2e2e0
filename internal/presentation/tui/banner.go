package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"     _         _               ", "#34d399"},
	{"    / \\   _ __| |__   ___  _ __ ", "#2dd4bf"},
	{"   / _ \\ | '__| '_ \\ / _ \\| '__|", "#22d3ee"},
	{"  / ___ \\| |  | |_) | (_) | |   ", "#38bdf8"},
	{" /_/   \\_\\_|  |_.__/ \\___/|_|   ", "#60a5fa"},
}

// PrintBanner writes the Arbor ASCII banner to w using a green-to-blue gradient.
// Colors degrade to whatever the output's profile supports.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  workflow tree editor v"+version).Faint())
	}
	fmt.Fprintln(w)
}
