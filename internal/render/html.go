// internal/render/html.go
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/Corphon/PsychoPedia/internal/textseg"
)

// HTMLRenderer emits escaped inline HTML: <strong> for bold and a colored
// <mark> for highlights. A segment that is both gets both.
type HTMLRenderer struct {
	DefaultColor string
}

func (r HTMLRenderer) Render(segments []textseg.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := html.EscapeString(seg.Text)
		if seg.IsBold {
			text = "<strong>" + text + "</strong>"
		}
		if seg.IsHighlighted() {
			text = fmt.Sprintf(`<mark class="highlight" style="background-color:%s">%s</mark>`,
				SafeColor(seg.HighlightColor, r.DefaultColor), text)
		}
		b.WriteString(text)
	}
	return b.String()
}

// Paragraph wraps a rendered fragment in a <p> with a text direction.
func Paragraph(fragment string, rtl bool) string {
	dir := "ltr"
	if rtl {
		dir = "rtl"
	}
	return fmt.Sprintf(`<p dir="%s">%s</p>`, dir, fragment)
}
