// internal/textseg/bold.go
package textseg

import (
	"regexp"
	"strings"
)

// Lazy match: the content of a pair never contains the delimiter itself.
var boldPattern = regexp.MustCompile(`(?s)\*\*(.*?)\*\*`)

// ExtractBold strips every well-formed **pair** from raw and returns the plain
// text plus the emphasized ranges in plain-text coordinates. Unpaired
// asterisks are kept as literal characters.
func ExtractBold(raw string) (string, []BoldRange) {
	matches := boldPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return raw, nil
	}

	var plain strings.Builder
	plain.Grow(len(raw))
	ranges := make([]BoldRange, 0, len(matches))

	last := 0
	for _, m := range matches {
		plain.WriteString(raw[last:m[0]])

		start := plain.Len()
		plain.WriteString(raw[m[2]:m[3]])
		ranges = append(ranges, BoldRange{Start: start, End: plain.Len()})

		last = m[1]
	}
	plain.WriteString(raw[last:])

	return plain.String(), ranges
}
