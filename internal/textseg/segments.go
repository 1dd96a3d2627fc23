// internal/textseg/segments.go
package textseg

import (
	"slices"

	"github.com/samber/lo"

	"github.com/Corphon/PsychoPedia/internal/models"
)

// BuildSegments cuts plain at every range edge and tags each piece.
//
// Boundaries are built from the range edges, so every segment lies either
// fully inside or fully outside each range and containment is enough to
// decide its style. The result partitions [0, len(plain)).
func BuildSegments(plain string, bold []BoldRange, highlights []HighlightRange) []Segment {
	n := len(plain)
	if n == 0 {
		return nil
	}

	points := make([]int, 0, 2+2*len(bold)+2*len(highlights))
	points = append(points, 0, n)
	for _, r := range bold {
		points = append(points, clamp(r.Start, n), clamp(r.End, n))
	}
	for _, r := range highlights {
		points = append(points, clamp(r.Start, n), clamp(r.End, n))
	}

	boundaries := lo.Uniq(points)
	slices.Sort(boundaries)

	segments := make([]Segment, 0, len(boundaries)-1)
	for i := 1; i < len(boundaries); i++ {
		a, b := boundaries[i-1], boundaries[i]
		if a == b {
			continue
		}

		seg := Segment{Start: a, End: b, Text: plain[a:b]}
		seg.IsBold = lo.ContainsBy(bold, func(r BoldRange) bool {
			return contains(r.Start, r.End, a, b)
		})
		if hl, ok := lo.Find(highlights, func(r HighlightRange) bool {
			return contains(r.Start, r.End, a, b)
		}); ok {
			seg.HighlightColor = hl.Color
		}
		segments = append(segments, seg)
	}

	return segments
}

// Process runs the whole paragraph pipeline: bold extraction, highlight
// location and segmentation.
func Process(raw string, highlights []models.Highlight) Result {
	plain, bold := ExtractBold(raw)
	located := LocateHighlights(plain, highlights)

	return Result{
		PlainText:       plain,
		BoldRanges:      bold,
		HighlightRanges: located,
		Segments:        BuildSegments(plain, bold, located),
	}
}

func clamp(v, n int) int {
	return min(max(v, 0), n)
}
