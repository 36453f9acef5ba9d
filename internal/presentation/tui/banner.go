package tui

import (
	"fmt"
	"io"
	"strings"
)

// PrintBanner writes the arbor banner with a green gradient.
func PrintBanner(w io.Writer, version string, mode ColorMode) {
	out := newOutput(w, mode)
	lines := []struct {
		text, color string
	}{
		{"    _         _", "#bbf7d0"},
		{"   / \\   _ __| |__   ___  _ __", "#86efac"},
		{"  / _ \\ | '__| '_ \\ / _ \\| '__|", "#4ade80"},
		{" / ___ \\| |  | |_) | (_) | |", "#22c55e"},
		{"/_/   \\_\\_|  |_.__/ \\___/|_|", "#16a34a"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
