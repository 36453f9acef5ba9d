// Package tui prints run progress and results to a terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aretw0/arbor"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorMode selects when output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode accepts auto, always and never.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	case "":
		return ColorAuto, nil
	}
	return "", fmt.Errorf("unknown color mode %q (auto, always, never)", s)
}

func newOutput(w io.Writer, mode ColorMode) *termenv.Output {
	profile := termenv.Ascii
	switch mode {
	case ColorAlways:
		profile = termenv.ANSI256
	case ColorAuto, "":
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			profile = termenv.EnvColorProfile()
		}
	}
	return termenv.NewOutput(w, termenv.WithProfile(profile))
}

// Printer writes task output lines and run summaries. It is safe for
// concurrent use since output lines arrive from task goroutines.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	out *termenv.Output
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, mode ColorMode) *Printer {
	return &Printer{w: w, out: newOutput(w, mode)}
}

// Line prints one output line prefixed by the node that produced it.
// Stderr lines are red.
func (p *Printer) Line(node string, line arbor.OutputLine) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := p.out.String(fmt.Sprintf("[%s]", node)).Foreground(p.out.Color("#a78bfa"))
	text := p.out.String(line.Line)
	if line.IsErr {
		text = text.Foreground(p.out.Color("#f87171"))
	}
	fmt.Fprintf(p.w, "%s %s\n", prefix, text)
}

// System prints a standardized system message.
func (p *Printer) System(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.out.String(">>> "+fmt.Sprintf(format, args...)).Faint())
}

// Outcome renders an outcome in its color.
func (p *Printer) Outcome(o arbor.Outcome) termenv.Style {
	s := p.out.String(o.String()).Bold()
	switch o {
	case arbor.Pass:
		return s.Foreground(p.out.Color("#4ade80"))
	case arbor.Fail:
		return s.Foreground(p.out.Color("#f87171"))
	}
	return s
}

// Result prints the run summary followed by the final state of every node
// that resolved or was interrupted.
func (p *Printer) Result(res *arbor.RunResult, verbose bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "%s %s in %s (run %s)\n",
		res.Tree, p.Outcome(res.Outcome), res.Duration.Round(time.Millisecond), res.RunID)
	if !verbose {
		return
	}
	for _, n := range res.Nodes {
		status := p.out.String("-").Faint()
		switch {
		case n.Interrupted:
			status = p.out.String("interrupted").Foreground(p.out.Color("#facc15"))
		case n.Outcome.Valid():
			status = p.Outcome(n.Outcome)
		case n.Running:
			status = p.out.String("running")
		}
		fmt.Fprintf(p.w, "  %-24s %s\n", n.Name, status)
	}
}
