package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chat banner to w using the color profile of w.
func PrintBanner(w io.Writer, subtitle string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`  ___  _       _             `, "#818cf8"},
		{` |   \(_)__ _ | |___  __ _   `, "#a78bfa"},
		{` | |) | / _' || / _ \/ _' |  `, "#c084fc"},
		{` |___/|_\__,_||_\___/\__, |  `, "#e879f9"},
		{`                     |___/   `, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	if subtitle != "" {
		fmt.Fprintln(w, out.String(" "+subtitle).Faint())
	}
	fmt.Fprintln(w)
}
