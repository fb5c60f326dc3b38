package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the conduit banner with its version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"   ___ ___  _ __   __| |_   _(_) |_ ", "#818cf8"},
		{"  / __/ _ \\| '_ \\ / _` | | | | | __|", "#a78bfa"},
		{" | (_| (_) | | | | (_| | |_| | | |_ ", "#e879f9"},
		{"  \\___\\___/|_| |_|\\__,_|\\__,_|_|\\__|", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(w, "  %s\n\n", out.String("v"+version).Faint())
}
