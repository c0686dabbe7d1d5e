package ui

import (
	"fmt"
	"io"
	"os"
)

// Banner is printed at the start of a crawl
const Banner = `
    ╔════════════════════════════════════════════╗
    ║  G E O S E L E C T O R                     ║
    ║  realty region tree crawler                ║
    ╚════════════════════════════════════════════╝
`

// ANSI color functions
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

func plain(text string) string { return text }

// Terminal writes user-facing output. Quiet suppresses everything except
// errors; NoColor drops the ANSI codes.
type Terminal struct {
	out     io.Writer
	errOut  io.Writer
	quiet   bool
	noColor bool
}

// NewTerminal creates a Terminal writing to stdout and stderr
func NewTerminal(quiet, noColor bool) *Terminal {
	return NewTerminalWithWriters(os.Stdout, os.Stderr, quiet, noColor)
}

// NewTerminalWithWriters creates a Terminal on the given writers
func NewTerminalWithWriters(out, errOut io.Writer, quiet, noColor bool) *Terminal {
	return &Terminal{out: out, errOut: errOut, quiet: quiet, noColor: noColor}
}

// Out returns the writer for regular output
func (t *Terminal) Out() io.Writer {
	return t.out
}

// Quiet reports whether regular output is suppressed
func (t *Terminal) Quiet() bool {
	return t.quiet
}

func (t *Terminal) paint(color func(string) string) func(string) string {
	if t.noColor {
		return plain
	}
	return color
}

// PrintBanner prints the banner
func (t *Terminal) PrintBanner() {
	if t.quiet {
		return
	}
	fmt.Fprint(t.out, t.paint(Cyan)(Banner))
}

// PrintError prints an error message in red to the error writer
func (t *Terminal) PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(t.errOut, t.paint(Red)(msg))
}

// PrintSuccess prints a success message in green
func (t *Terminal) PrintSuccess(msg string) {
	if t.quiet {
		return
	}
	fmt.Fprintln(t.out, t.paint(Green)(msg))
}

// PrintInfo prints a label and value
func (t *Terminal) PrintInfo(label string, value string) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.out, "%s: %s\n", t.paint(Cyan)(label), t.paint(Yellow)(value))
}

// PrintWarning prints a warning message in yellow
func (t *Terminal) PrintWarning(msg string, args ...interface{}) {
	if t.quiet {
		return
	}
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(t.out, t.paint(Yellow)(msg))
}

// PrintHighlight prints a highlighted message in magenta
func (t *Terminal) PrintHighlight(msg string) {
	if t.quiet {
		return
	}
	fmt.Fprintln(t.out, t.paint(Magenta)(msg))
}
