// internal/textseg/types.go
package textseg

// BoldRange is a half-open byte range of plain text that was wrapped in **.
type BoldRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// HighlightRange is a located occurrence of a saved highlight.
type HighlightRange struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Color string `json:"color"`
}

// Segment is a maximal run of plain text sharing one styling.
type Segment struct {
	Start          int    `json:"start"`
	End            int    `json:"end"`
	Text           string `json:"text"`
	IsBold         bool   `json:"isBold"`
	HighlightColor string `json:"highlightColor,omitempty"`
}

// IsHighlighted reports whether the segment falls inside an accepted highlight.
func (s Segment) IsHighlighted() bool {
	return s.HighlightColor != ""
}

// IsPlain reports whether the segment carries no styling at all.
func (s Segment) IsPlain() bool {
	return !s.IsBold && !s.IsHighlighted()
}

// Result bundles every stage of a paragraph render.
type Result struct {
	PlainText       string           `json:"plainText"`
	BoldRanges      []BoldRange      `json:"boldRanges"`
	HighlightRanges []HighlightRange `json:"highlightRanges"`
	Segments        []Segment        `json:"segments"`
}

func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

func contains(start, end, a, b int) bool {
	return start <= a && b <= end
}
