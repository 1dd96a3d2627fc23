// internal/textseg/locate.go
package textseg

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Corphon/PsychoPedia/internal/models"
)

// LocateHighlights finds every occurrence of each saved highlight in plain,
// case-insensitively, and returns a conflict-free set sorted by start.
//
// Longer highlights are placed first so a short highlight that is a substring
// of a long one cannot fragment it. An occurrence that overlaps an already
// accepted range is dropped, not retried. Highlights carry no offsets, so a
// text that occurs twice is marked at both places, not only where the reader
// selected it.
func LocateHighlights(plain string, highlights []models.Highlight) []HighlightRange {
	if plain == "" || len(highlights) == 0 {
		return nil
	}

	ordered := slices.Clone(highlights)
	slices.SortStableFunc(ordered, func(a, b models.Highlight) int {
		return cmp.Compare(utf8.RuneCountInString(b.Text), utf8.RuneCountInString(a.Text))
	})

	var accepted []HighlightRange
	for _, h := range ordered {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}

		// Text that is not valid UTF-8 cannot be compiled and matches nothing.
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(h.Text))
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(plain, -1) {
			if conflicts(accepted, loc[0], loc[1]) {
				continue
			}
			accepted = append(accepted, HighlightRange{Start: loc[0], End: loc[1], Color: h.Color})
		}
	}

	slices.SortFunc(accepted, func(a, b HighlightRange) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return accepted
}

func conflicts(accepted []HighlightRange, start, end int) bool {
	for _, r := range accepted {
		if overlaps(r.Start, r.End, start, end) {
			return true
		}
	}
	return false
}
