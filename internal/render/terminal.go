// internal/render/terminal.go
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Corphon/PsychoPedia/internal/textseg"
)

// Palette names the web client uses, mapped to terminal-friendly hex values.
var namedColors = map[string]string{
	"yellow": "#fff59d",
	"green":  "#a5d6a7",
	"blue":   "#90caf9",
	"pink":   "#f48fb1",
	"orange": "#ffcc80",
	"purple": "#ce93d8",
	"red":    "#ef9a9a",
}

// TerminalRenderer styles segments with lipgloss for ANSI terminals.
type TerminalRenderer struct {
	highlight lipgloss.Style
}

func NewTerminalRenderer() TerminalRenderer {
	return TerminalRenderer{
		highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")),
	}
}

func (r TerminalRenderer) Render(segments []textseg.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.IsPlain() {
			b.WriteString(seg.Text)
			continue
		}

		style := lipgloss.NewStyle()
		if seg.IsHighlighted() {
			style = r.highlight.Background(lipgloss.Color(terminalColor(seg.HighlightColor)))
		}
		if seg.IsBold {
			style = style.Bold(true)
		}
		b.WriteString(style.Render(seg.Text))
	}
	return b.String()
}

func terminalColor(color string) string {
	if hex, ok := namedColors[strings.ToLower(strings.TrimSpace(color))]; ok {
		return hex
	}
	if strings.HasPrefix(color, "#") {
		return color
	}
	return DefaultHighlightColor
}
