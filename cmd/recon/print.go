package main

import (
	"fmt"
	"strings"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/recon/arch"
)

// colorize renders a single coloured span for a terminal. Only the PLT/IAT
// colour gets a distinct ANSI attribute (term.MagentaBold, the same
// attribute the teacher's own dbg loggers use); the rest print as plain
// text; a terminal widget with a full palette is one of the out-of-scope
// collaborators named in §1, and the CLI here only needs the click-to-
// navigate token kind, not the full colour set, to stay useful.
func colorize(s arch.Span) string {
	if s.Color == arch.ColorPLT {
		return term.MagentaBold(s.Text)
	}
	return s.Text
}

// renderLine flattens one rendered line's spans to a coloured string.
func renderLine(line []arch.Span) string {
	var sb strings.Builder
	for _, s := range line {
		sb.WriteString(colorize(s))
	}
	return sb.String()
}

// printText writes every line of text to standard output.
func printText(text arch.Text) {
	for _, line := range text.Lines {
		fmt.Println(renderLine(line))
	}
}
