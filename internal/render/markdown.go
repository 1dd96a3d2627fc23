// internal/render/markdown.go
package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Corphon/PsychoPedia/internal/textseg"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", "&lt;",
	">", "&gt;",
)

// MarkdownRenderer re-emits bold as ** and highlights as inline <mark> HTML,
// which goldmark passes through when unsafe HTML is enabled. Literal markup
// characters in the text are escaped.
type MarkdownRenderer struct {
	DefaultColor string
}

func (r MarkdownRenderer) Render(segments []textseg.Segment) string {
	var b strings.Builder
	for _, seg := range mergeRuns(segments) {
		text := markdownEscaper.Replace(seg.Text)
		if seg.IsBold {
			text = strong(text)
		}
		if seg.IsHighlighted() {
			text = fmt.Sprintf(`<mark style="background-color:%s">%s</mark>`,
				SafeColor(seg.HighlightColor, r.DefaultColor), text)
		}
		b.WriteString(text)
	}
	return b.String()
}

// strong keeps surrounding whitespace outside the ** so the delimiters stay
// flanking. Whitespace-only text is returned as is.
func strong(text string) string {
	inner := strings.TrimFunc(text, unicode.IsSpace)
	if inner == "" {
		return text
	}
	lead := text[:strings.Index(text, inner)]
	trail := text[len(lead)+len(inner):]
	return lead + "**" + inner + "**" + trail
}

// mergeRuns joins adjacent segments with the same styling. Abutting bold
// ranges would otherwise be re-emitted as a run of four asterisks.
func mergeRuns(segments []textseg.Segment) []textseg.Segment {
	merged := make([]textseg.Segment, 0, len(segments))
	for _, seg := range segments {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.End == seg.Start && last.IsBold == seg.IsBold && last.HighlightColor == seg.HighlightColor {
				last.End = seg.End
				last.Text += seg.Text
				continue
			}
		}
		merged = append(merged, seg)
	}
	return merged
}
