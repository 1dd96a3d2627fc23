// internal/render/render.go
package render

import (
	"regexp"
	"strings"

	"github.com/Corphon/PsychoPedia/internal/textseg"
)

// DefaultHighlightColor is used when a stored color cannot be emitted safely.
const DefaultHighlightColor = "#fff59d"

// Renderer turns a segment list into one inline fragment.
type Renderer interface {
	Render(segments []textseg.Segment) string
}

var safeColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|rgba?\(\s*[0-9.%]+\s*(,\s*[0-9.%]+\s*){2,3}\))$`)

// IsSafeColor reports whether color is a plain CSS color value that can be
// placed in a style attribute as is.
func IsSafeColor(color string) bool {
	return safeColor.MatchString(strings.TrimSpace(color))
}

// SafeColor returns color when it is a plain CSS color value, fallback otherwise.
func SafeColor(color, fallback string) string {
	if IsSafeColor(color) {
		return strings.TrimSpace(color)
	}
	if fallback == "" {
		return DefaultHighlightColor
	}
	return fallback
}

// ForFormat picks the renderer for an output format name.
func ForFormat(format, defaultColor string) (Renderer, bool) {
	switch strings.ToLower(format) {
	case "html", "":
		return HTMLRenderer{DefaultColor: defaultColor}, true
	case "markdown", "md":
		return MarkdownRenderer{DefaultColor: defaultColor}, true
	case "terminal", "ansi":
		return NewTerminalRenderer(), true
	default:
		return nil, false
	}
}
